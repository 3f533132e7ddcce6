package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDir, dir)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dir != dir {
		t.Fatalf("Dir = %q, want %q", cfg.Dir, dir)
	}
	if cfg.HistoryDir() != filepath.Join(dir, "history") {
		t.Fatalf("HistoryDir = %q", cfg.HistoryDir())
	}

	p, err := cfg.DefaultProfile()
	if err != nil {
		t.Fatalf("missing profile: %v", err)
	}
	if diff := cmp.Diff(&Profile{}, p); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	err := os.WriteFile(path, []byte(`items: [a, b, c]
capacity: 2
consumers: 1
producer_delay: 100ms
consumer_delay: 200ms
jitter: 5ms
sentinel: STOP
timeout: 3s
`), 0644)
	if err != nil {
		t.Fatal(err)
	}
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatal(err)
	}
	r, err := p.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, r.Items); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}
	if r.Capacity != 2 || r.Producers != 1 || r.Consumers != 1 {
		t.Errorf("resolved %+v", r)
	}
	if r.ProducerPacing.Delay != 100*time.Millisecond || r.ConsumerPacing.Delay != 200*time.Millisecond {
		t.Errorf("pacing %+v %+v", r.ProducerPacing, r.ConsumerPacing)
	}
	if r.ProducerPacing.Jitter != 5*time.Millisecond || r.Timeout != 3*time.Second {
		t.Errorf("jitter %v timeout %v", r.ProducerPacing.Jitter, r.Timeout)
	}
	if r.Sentinel == nil || *r.Sentinel != "STOP" {
		t.Errorf("sentinel %v", r.Sentinel)
	}
}

func TestLoadProfileErrors(t *testing.T) {
	if _, err := LoadProfile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("capacity: [1"), 0644)
	if _, err := LoadProfile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestResolveDefaults(t *testing.T) {
	r, err := (&Profile{Count: 3}).Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if r.Capacity != 10 || r.Producers != 1 || r.Consumers != 1 {
		t.Errorf("defaults %+v", r)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, r.Items); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}

	stop := "x"
	for name, p := range map[string]*Profile{
		"bad delay":          {ProducerDelay: "soon"},
		"negative timeout":   {Timeout: "-1s"},
		"sentinel consumers": {Sentinel: &stop, Consumers: 2},
	} {
		if _, err := p.Resolve(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestMerge(t *testing.T) {
	stop := "END"
	p := &Profile{Items: []string{"a"}, Capacity: 4, Consumers: 2}
	p.Merge(&Profile{Capacity: 1, Sentinel: &stop, NoHistory: true})
	want := &Profile{Items: []string{"a"}, Capacity: 1, Consumers: 2, Sentinel: &stop, NoHistory: true}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
