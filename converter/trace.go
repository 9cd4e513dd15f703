package converter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/binzume/motiontrace/geom"
)

// TraceSuffix is the file name suffix of a smoothed per-person trace.
const TraceSuffix = "_smooth.json"

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Position) Vector3() geom.Vector3 {
	return geom.NewVector3(p.X, p.Y, p.Z)
}

type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
	Presence   float64 `json:"presence"`
}

func (l Landmark) Vector3() geom.Vector3 {
	return geom.NewVector3(l.X, l.Y, l.Z)
}

// TraceFrame is the tracker output of one video frame.
type TraceFrame struct {
	TrackedBBox   []float64           `json:"tracked_bbox"`
	Confidence    float64             `json:"conf"`
	Camera        Position            `json:"camera"`
	Joint3D       map[string]Position `json:"3d_joints"`
	GlobalJoint3D map[string]Position `json:"global_3d_joints"`
	Joint2D       map[string]Position `json:"2d_joints"`
	Mediapipe     map[string]Landmark `json:"mediapipe"`
}

// Trace is the tracked motion of one person.
type Trace struct {
	Path   string             `json:"-"`
	Frames map[int]TraceFrame `json:"frames"`
}

func LoadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.Path = path
	return &t, nil
}

// Name is the file name without the trace suffix.
func (t *Trace) Name() string {
	return strings.TrimSuffix(filepath.Base(t.Path), TraceSuffix)
}

// Indexes returns the frame numbers in ascending order.
func (t *Trace) Indexes() []int {
	indexes := make([]int, 0, len(t.Frames))
	for fno := range t.Frames {
		indexes = append(indexes, fno)
	}
	sort.Ints(indexes)
	return indexes
}

// FindTraces lists the traces directly under dir.
func FindTraces(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), TraceSuffix) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}
