package competition

import (
	"testing"
)

func TestExtractID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"Regular portal URL", "https://cpk.msu.ru/rating/applicants/193244", "193244"},
		{"Relative path", "/applicants/1011", "1011"},
		{"Single digit", "https://cpk.msu.ru/applicants/7", "7"},
		{"Empty string", "", ""},
		{"No applicants segment", "https://cpk.msu.ru/rating/dep_01", ""},
		{"Trailing slash", "https://cpk.msu.ru/applicants/193244/", ""},
		{"Non-numeric segment", "https://cpk.msu.ru/applicants/abc", ""},
		{"Mixed segment", "https://cpk.msu.ru/applicants/123abc", ""},
		{"Query string after id", "https://cpk.msu.ru/applicants/193244?page=2", ""},
		{"Trailing newline", "https://cpk.msu.ru/applicants/193244\n", ""},
		{"Empty id", "https://cpk.msu.ru/applicants/", ""},
		{"Only last segment counts", "https://cpk.msu.ru/applicants/111/applicants/222", "222"},
		{"Nested path before id", "https://cpk.msu.ru/applicants/111/list", ""},
		{"Similar segment name", "https://cpk.msu.ru/xapplicants/123", ""},
		{"Non-ASCII digits", "https://cpk.msu.ru/applicants/١٢٣", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractID(tt.url); got != tt.want {
				t.Errorf("ExtractID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestIDsFromRecord(t *testing.T) {
	t.Parallel()
	r := ProgramRecord{
		Name:              "Фундаментальная и прикладная химия",
		RegularBVIURL:     "https://cpk.msu.ru/applicants/193254",
		DedicatedQuotaURL: "https://cpk.msu.ru/applicants/193257",
		SpecialQuotaURL:   "https://cpk.msu.ru/applicants/193255",
		TargetQuotaURL:    "",
	}

	got := IDsFromRecord(r)
	want := CompetitionIDs{
		RegularBVI:     "193254",
		DedicatedQuota: "193257",
		SpecialQuota:   "193255",
		TargetQuota:    "",
	}
	if got != want {
		t.Errorf("IDsFromRecord() = %+v, want %+v", got, want)
	}
}

func TestCompetitionIDs_ByQuota(t *testing.T) {
	t.Parallel()
	ids := CompetitionIDs{RegularBVI: "1", DedicatedQuota: "2", SpecialQuota: "3", TargetQuota: "4"}

	want := map[Quota]string{
		QuotaRegularBVI:     "1",
		QuotaDedicatedQuota: "2",
		QuotaSpecialQuota:   "3",
		QuotaTargetQuota:    "4",
		Quota("unknown"):    "",
	}
	for q, id := range want {
		if got := ids.ByQuota(q); got != id {
			t.Errorf("ByQuota(%q) = %q, want %q", q, got, id)
		}
	}

	if ids.IsEmpty() {
		t.Error("IsEmpty() = true for populated ids")
	}
	if !(CompetitionIDs{}).IsEmpty() {
		t.Error("IsEmpty() = false for zero value")
	}
}

func TestParseQuota(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input   string
		want    Quota
		wantErr bool
	}{
		{"regular_bvi", QuotaRegularBVI, false},
		{"special-quota", QuotaSpecialQuota, false},
		{" Target_Quota ", QuotaTargetQuota, false},
		{"dedicated_quota", QuotaDedicatedQuota, false},
		{"paid", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseQuota(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseQuota(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseQuota(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
