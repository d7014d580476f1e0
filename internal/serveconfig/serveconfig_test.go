package serveconfig

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), ".roostrc"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Serve.Mappings) != 0 {
		t.Errorf("expected empty mappings, got %v", cfg.Serve.Mappings)
	}
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".roostrc")
	cfg := Empty()
	cfg.AddMapping("api.test", 5000)
	cfg.AddMapping("app.test", 3000)
	cfg.SetPorts([]int{80, 443})

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded.Serve.Mappings, cfg.Serve.Mappings) {
		t.Errorf("mappings = %v, want %v", loaded.Serve.Mappings, cfg.Serve.Mappings)
	}
	if !reflect.DeepEqual(loaded.Serve.Ports, cfg.Serve.Ports) {
		t.Errorf("ports = %v, want %v", loaded.Serve.Ports, cfg.Serve.Ports)
	}
}

func TestLoad_DropsEmptyDomainEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".roostrc")
	cfg := &Config{Serve: ServeSection{Mappings: []Mapping{
		{Domain: "api.test", Port: 5000},
		{Domain: "", Port: 9999},
	}}}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Serve.Mappings) != 1 || loaded.Serve.Mappings[0].Domain != "api.test" {
		t.Errorf("mappings = %v, want only api.test", loaded.Serve.Mappings)
	}
}

func TestAddMapping_MostRecentWins(t *testing.T) {
	cfg := Empty()
	cfg.AddMapping("api.test", 5000)
	cfg.AddMapping("app.test", 3000)
	cfg.AddMapping("api.test", 5001)

	if len(cfg.Serve.Mappings) != 2 {
		t.Fatalf("mappings = %v, want 2 entries", cfg.Serve.Mappings)
	}
	last := cfg.Serve.Mappings[len(cfg.Serve.Mappings)-1]
	if last.Domain != "api.test" || last.Port != 5001 {
		t.Errorf("last mapping = %+v, want api.test:5001 appended last", last)
	}
}

func TestRemoveMapping(t *testing.T) {
	cfg := Empty()
	cfg.AddMapping("api.test", 5000)
	cfg.AddMapping("app.test", 3000)
	cfg.RemoveMapping("api.test")

	if len(cfg.Serve.Mappings) != 1 || cfg.Serve.Mappings[0].Domain != "app.test" {
		t.Errorf("mappings = %v, want only app.test", cfg.Serve.Mappings)
	}
}

func TestAddThenRemove_RoundtripsToInitialState(t *testing.T) {
	cfg := Empty()
	cfg.AddMapping("app.test", 3000)
	initial := append([]Mapping(nil), cfg.Serve.Mappings...)

	cfg.AddMapping("api.test", 5000)
	cfg.RemoveMapping("api.test")

	if !reflect.DeepEqual(cfg.Serve.Mappings, initial) {
		t.Errorf("mappings after add+remove = %v, want %v", cfg.Serve.Mappings, initial)
	}
}

func TestEffectivePorts_DefaultsWhenEmpty(t *testing.T) {
	cfg := Empty()
	got := cfg.EffectivePorts()
	if !reflect.DeepEqual(got, []int{80, 443}) {
		t.Errorf("EffectivePorts = %v, want [80 443]", got)
	}
}

func TestEffectivePorts_SortedDeduped(t *testing.T) {
	cfg := &Config{Serve: ServeSection{Ports: []int{443, 80, 443, 8080}}}
	got := cfg.EffectivePorts()
	if !reflect.DeepEqual(got, []int{80, 443, 8080}) {
		t.Errorf("EffectivePorts = %v, want [80 443 8080]", got)
	}
}

func TestRemovePort_MaterializesDefaultsFirst(t *testing.T) {
	cfg := Empty()
	cfg.RemovePort(80)
	if !reflect.DeepEqual(cfg.Serve.Ports, []int{443}) {
		t.Errorf("ports after removing 80 from unconfigured = %v, want [443]", cfg.Serve.Ports)
	}
}

func TestPortOnlyEightyDoesNotImplyRedirect(t *testing.T) {
	cfg := Empty()
	cfg.SetPorts([]int{80})
	got := cfg.EffectivePorts()
	if !reflect.DeepEqual(got, []int{80}) {
		t.Errorf("EffectivePorts = %v, want [80] (443 must not be implied)", got)
	}
}

func TestMerge_ProjectWinsOnConflict(t *testing.T) {
	global := Empty()
	global.AddMapping("api.test", 5000)
	global.AddMapping("app.test", 3000)

	project := Empty()
	project.AddMapping("api.test", 5001)

	merged := Merge(project, global)
	want := map[string]int{"api.test": 5001, "app.test": 3000}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("Merge = %v, want %v", merged, want)
	}
}

func TestMergeWithSource_TagsWinner(t *testing.T) {
	global := Empty()
	global.AddMapping("api.test", 5000)
	global.AddMapping("app.test", 3000)

	project := Empty()
	project.AddMapping("api.test", 5001)

	merged := MergeWithSource(project, global)
	if len(merged) != 2 {
		t.Fatalf("merged = %v, want 2 entries", merged)
	}
	// sorted by domain: api.test, app.test
	if merged[0].Domain != "api.test" || merged[0].Port != 5001 || merged[0].Source != SourceProject {
		t.Errorf("merged[0] = %+v, want api.test:5001 project", merged[0])
	}
	if merged[1].Domain != "app.test" || merged[1].Port != 3000 || merged[1].Source != SourceGlobal {
		t.Errorf("merged[1] = %+v, want app.test:3000 global", merged[1])
	}
}

func TestMergePorts_UnionSorted(t *testing.T) {
	global := Empty()
	global.SetPorts([]int{80, 443})
	project := Empty()
	project.SetPorts([]int{3000})

	got := MergePorts(project, global)
	if !reflect.DeepEqual(got, []int{80, 443, 3000}) {
		t.Errorf("MergePorts = %v, want [80 443 3000]", got)
	}
}
