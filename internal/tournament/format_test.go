package tournament

import "testing"

func TestFormat(t *testing.T) {
	statuses := Statuses{
		ChangedStatus(Change{
			Name:          "Poteto Riichi Taikai 2023",
			Date:          strp("1-2 November 2023"),
			ResultsStatus: strp("Results"),
		}),
		NewStatus(krakowOpen()),
	}

	got := Format("", statuses)
	want := "* **CHANGED**: _Poteto Riichi Taikai 2023_; date: 1-2 November 2023; results: \"Results\"\n" +
		"* **NEW**: _Krakow Riichi Open_ (https://chombo.club); 27-31 November 2023; Krakow; MERS: OK\n"
	if got != want {
		t.Fatalf("Format =\n%q\nwant\n%q", got, want)
	}
}

func TestFormatHeaderAndOptionalParts(t *testing.T) {
	e := krakowOpen()
	e.URL = ""
	e.ResultsStatus = "Results"

	got := Format("EMA calendar update", Statuses{
		NewStatus(e),
		ChangedStatus(Change{Name: "X", Place: strp("Lodz"), ApprovalStatus: strp("Pending")}),
	})
	want := "EMA calendar update\n" +
		"* **NEW**: _Krakow Riichi Open_; 27-31 November 2023; Krakow; MERS: OK; Results\n" +
		"* **CHANGED**: _X_; place: Lodz; MERS approval: Pending\n"
	if got != want {
		t.Fatalf("Format =\n%q\nwant\n%q", got, want)
	}
}
