package objects

import (
	"strings"
	"testing"

	"github.com/JonMunkholm/geobuild/internal/core"
)

const spatialMapping = `{
  "hole_id": "HOLE", "from": "FROM", "to": "TO",
  "start_x": "SX", "start_y": "SY", "start_z": "SZ",
  "mid_x": "MX", "mid_y": "MY", "mid_z": "MZ",
  "end_x": "EX", "end_y": "EY", "end_z": "EZ",
  "attributes": ["AU"]
}`

const spatialHeader = "HOLE,FROM,TO,SX,SY,SZ,MX,MY,MZ,EX,EY,EZ,AU\n"

func buildSpatial(t *testing.T, rows, mapping string) *core.BuildResult {
	t.Helper()
	files := memFiles{"intervals": spatialHeader + rows}
	return mustBuild(t, files, request(core.ObjectDownholeIntervals, files, mapping, true))
}

func TestDownholeIntervals_Build(t *testing.T) {
	res := buildSpatial(t,
		"H1,0,2,0,0,0,0,0,-1,0,0,-2,0.5\n"+
			"H1,2,4,,,,,,,,,,0.7\n",
		spatialMapping)

	if !res.Report.Validated() {
		t.Fatalf("status = %s: %+v", res.Report.Status, res.Report.Messages)
	}
	set := res.Draft.Content.(*DownholeIntervalSet)
	if len(set.Intervals) != 2 {
		t.Fatalf("got %d intervals, want 2", len(set.Intervals))
	}

	first := set.Intervals[0]
	if first.Start == nil || first.Mid == nil || first.End == nil || first.End.Z != -2 {
		t.Errorf("first interval coordinates = %+v %+v %+v", first.Start, first.Mid, first.End)
	}
	if first.IsComposited {
		t.Error("is_composited defaults to false")
	}

	second := set.Intervals[1]
	if second.Start != nil || second.Mid != nil || second.End != nil {
		t.Errorf("empty coordinate triples must be absent, got %+v", second)
	}
}

func TestDownholeIntervals_Validation(t *testing.T) {
	tests := []struct {
		name       string
		row        string
		wantStatus core.ReportStatus
		wantCode   string
	}{
		{
			name:       "from equals to",
			row:        "H1,2,2,0,0,0,0,0,-1,0,0,-2,1\n",
			wantStatus: core.StatusFailed,
			wantCode:   core.CodeInvalidInterval,
		},
		{
			name:       "negative from",
			row:        "H1,-1,2,0,0,0,0,0,-1,0,0,-2,1\n",
			wantStatus: core.StatusFailed,
			wantCode:   core.CodeInvalidInterval,
		},
		{
			name:       "mid off the segment",
			row:        "H1,0,2,0,0,0,0.5,0,-1,0,0,-2,1\n",
			wantStatus: core.StatusValidated,
			wantCode:   core.CodeMidOutsideSegment,
		},
		{
			name:       "mid beyond the end",
			row:        "H1,0,2,0,0,0,0,0,-3,0,0,-2,1\n",
			wantStatus: core.StatusValidated,
			wantCode:   core.CodeMidOutsideSegment,
		},
		{
			name:       "mid within tolerance",
			row:        "H1,0,2,0,0,0,0.0000001,0,-1,0,0,-2,1\n",
			wantStatus: core.StatusValidated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := buildSpatial(t, tt.row, spatialMapping)
			if res.Report.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", res.Report.Status, tt.wantStatus)
			}
			var got []string
			for _, m := range res.Report.Messages {
				got = append(got, m.Code)
			}
			if strings.Join(got, ",") != tt.wantCode {
				t.Errorf("codes = %v, want [%s]", got, tt.wantCode)
			}
		})
	}
}

func TestDownholeIntervals_IsComposited(t *testing.T) {
	t.Run("constant", func(t *testing.T) {
		mapping := `{"hole_id":"HOLE","from":"FROM","to":"TO","is_composited":true}`
		res := buildSpatial(t, "H1,0,1,,,,,,,,,,\n", mapping)
		if !res.Draft.Content.(*DownholeIntervalSet).Intervals[0].IsComposited {
			t.Error("is_composited = false, want true")
		}
	})

	t.Run("column", func(t *testing.T) {
		files := memFiles{"intervals": "HOLE,FROM,TO,COMP\nH1,0,1,yes\nH1,1,2,\nH1,2,3,0\n"}
		mapping := `{"hole_id":"HOLE","from":"FROM","to":"TO","is_composited":"COMP"}`
		res := mustBuild(t, files, request(core.ObjectDownholeIntervals, files, mapping, true))

		set := res.Draft.Content.(*DownholeIntervalSet)
		want := []bool{true, false, false}
		for i, w := range want {
			if set.Intervals[i].IsComposited != w {
				t.Errorf("interval %d is_composited = %v, want %v", i, set.Intervals[i].IsComposited, w)
			}
		}
	})

	t.Run("bad column value", func(t *testing.T) {
		files := memFiles{"intervals": "HOLE,FROM,TO,COMP\nH1,0,1,maybe\n"}
		mapping := `{"hole_id":"HOLE","from":"FROM","to":"TO","is_composited":"COMP"}`
		_, err := runBuild(t, files, request(core.ObjectDownholeIntervals, files, mapping, true), nil)
		assertMalformed(t, err, 2, "COMP")
	})
}

func TestDownholeIntervals_PartialTriple(t *testing.T) {
	files := memFiles{"intervals": spatialHeader + "H1,0,2,0,,0,0,0,-1,0,0,-2,1\n"}
	_, err := runBuild(t, files, request(core.ObjectDownholeIntervals, files, spatialMapping, true), nil)
	assertMalformed(t, err, 2, "SX")
}

func TestDownholeIntervals_HalfMappedTriple(t *testing.T) {
	files := memFiles{"intervals": spatialHeader + "H1,0,2,0,0,0,0,0,-1,0,0,-2,1\n"}
	mapping := `{"hole_id":"HOLE","from":"FROM","to":"TO","start_x":"SX","start_y":"SY"}`
	_, err := runBuild(t, files, request(core.ObjectDownholeIntervals, files, mapping, true), nil)
	if err == nil || !strings.Contains(err.Error(), "invalid column mapping") {
		t.Errorf("error = %v, want invalid column mapping", err)
	}
}

func TestDistanceToSegment(t *testing.T) {
	a := core.Point3{}
	b := core.Point3{Z: -10}

	tests := []struct {
		name string
		p    core.Point3
		want float64
	}{
		{"on segment", core.Point3{Z: -4}, 0},
		{"beside segment", core.Point3{X: 3, Z: -5}, 3},
		{"past the end", core.Point3{Z: -14}, 4},
		{"before the start", core.Point3{Z: 2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, length := distanceToSegment(tt.p, a, b)
			if got != tt.want || length != 10 {
				t.Errorf("distanceToSegment = %v (length %v), want %v (10)", got, length, tt.want)
			}
		})
	}
}
