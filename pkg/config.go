package converter

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

type Configuration struct {
	FileIn           string       `json:"file_in" yaml:"file_in"`
	FileOut          string       `json:"file_out" yaml:"file_out"`
	OutputFormat     OutputFormat `json:"output_format" yaml:"output_format"`
	Partition        string       `json:"partition" yaml:"partition"`
	TaskMode         TaskMode     `json:"task_mode" yaml:"task_mode"`
	UseEventCuts     bool         `json:"use_event_cuts" yaml:"use_event_cuts"`
	MaxVertexZ       float64      `json:"max_vertex_z" yaml:"max_vertex_z"`
	MinTracks        int          `json:"min_tracks" yaml:"min_tracks"`
	PruneList        string       `json:"prune_list" yaml:"prune_list"`
	DisabledTables   []string     `json:"disabled_tables" yaml:"disabled_tables"`
	EventsPerCluster int          `json:"events_per_cluster" yaml:"events_per_cluster"`
	CompressionLevel int          `json:"compression_level" yaml:"compression_level"`
	MCIndexScope     IndexScope   `json:"mc_index_scope" yaml:"mc_index_scope"`
	MaxEvents        int          `json:"max_events" yaml:"max_events"`
	Skip             int          `json:"skip" yaml:"skip"`
	NumWorkers       int          `json:"num_workers" yaml:"num_workers"`
	Verbosity        int          `json:"verbosity" yaml:"verbosity"`
	NoDB             bool         `json:"no_db" yaml:"no_db"`
	DBDriver         string       `json:"db_driver" yaml:"db_driver"`
	Host             string       `json:"host" yaml:"host"`
	User             string       `json:"user" yaml:"user"`
	Passwd           string       `json:"pass" yaml:"pass"`
	DBName           string       `json:"dbname" yaml:"dbname"`
	Overwrite        bool         `json:"overwrite" yaml:"overwrite"`
	PushgatewayURL   string       `json:"pushgateway_url" yaml:"pushgateway_url"`
}

// DefaultConfiguration returns the values used for fields missing from the
// configuration file.
func DefaultConfiguration() Configuration {
	return Configuration{
		OutputFormat:     OutputHDF5,
		TaskMode:         TaskModeStandard,
		MaxVertexZ:       10,
		MinTracks:        1,
		EventsPerCluster: 100,
		CompressionLevel: 4,
		MCIndexScope:     IndexScopeEvent,
		MaxEvents:        1e9,
		NumWorkers:       4,
		DBDriver:         "mysql",
		Host:             "localhost",
		User:             "converter",
		DBName:           "ao2d",
	}
}

// TaskMode selects between real data and Monte-Carlo conversion.
type TaskMode int

const (
	TaskModeStandard TaskMode = iota
	TaskModeMC
)

var taskModeStrings = []string{"standard", "mc"}

func (m TaskMode) String() string {
	if m < TaskModeStandard || m > TaskModeMC {
		return "UNKNOWN"
	}
	return taskModeStrings[m]
}

func (m TaskMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *TaskMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return m.parse(s)
}

func (m *TaskMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return m.parse(s)
}

func (m *TaskMode) parse(s string) error {
	for i, v := range taskModeStrings {
		if v == s {
			*m = TaskMode(i)
			return nil
		}
	}
	return fmt.Errorf("invalid TaskMode: %s", s)
}

type OutputFormat int

const (
	OutputHDF5 OutputFormat = iota
	OutputROOT
	OutputParquet
	OutputMemory
)

var outputFormatStrings = []string{"hdf5", "root", "parquet", "memory"}

func (f OutputFormat) String() string {
	if f < OutputHDF5 || f > OutputMemory {
		return "UNKNOWN"
	}
	return outputFormatStrings[f]
}

func (f OutputFormat) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *OutputFormat) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return f.parse(s)
}

func (f *OutputFormat) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return f.parse(s)
}

func (f *OutputFormat) parse(s string) error {
	for i, v := range outputFormatStrings {
		if v == s {
			*f = OutputFormat(i)
			return nil
		}
	}
	return fmt.Errorf("invalid OutputFormat: %s", s)
}

// IndexScope decides whether kinematics indices are local to the event or
// global to the run.
type IndexScope int

const (
	IndexScopeEvent IndexScope = iota
	IndexScopeRun
)

var indexScopeStrings = []string{"event", "run"}

func (s IndexScope) String() string {
	if s < IndexScopeEvent || s > IndexScopeRun {
		return "UNKNOWN"
	}
	return indexScopeStrings[s]
}

func (s IndexScope) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *IndexScope) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	return s.parse(str)
}

func (s *IndexScope) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}
	return s.parse(str)
}

func (s *IndexScope) parse(str string) error {
	for i, v := range indexScopeStrings {
		if v == str {
			*s = IndexScope(i)
			return nil
		}
	}
	return fmt.Errorf("invalid IndexScope: %s", str)
}
