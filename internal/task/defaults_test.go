package task

import "testing"

func boolPtr(b bool) *bool { return &b }

func TestApplyDefaultsFillsUnsetFields(t *testing.T) {
	p := &MergeParameters{Inputs: []string{"a.pdf", "b.pdf"}, Output: "/tmp/out.pdf"}

	ApplyDefaults(p, Defaults{ExistingOutput: "skip", Compress: true, Version: "1.7"})

	if p.ExistingOutput != "skip" {
		t.Fatalf("policy = %q, want skip", p.ExistingOutput)
	}
	if p.Compress == nil || !*p.Compress {
		t.Fatalf("compress = %v, want defaulted true", p.Compress)
	}
	if p.Version != "1.7" {
		t.Fatalf("version = %q, want 1.7", p.Version)
	}
}

func TestApplyDefaultsKeepsRequestValues(t *testing.T) {
	p := &MergeParameters{
		Inputs: []string{"a.pdf", "b.pdf"},
		Output: "/tmp/out.pdf",
		OutputOptions: OutputOptions{
			ExistingOutput: "overwrite",
			Compress:       boolPtr(false),
			Version:        "1.4",
		},
	}

	ApplyDefaults(p, Defaults{ExistingOutput: "skip", Compress: true, Version: "1.7"})

	if p.ExistingOutput != "overwrite" {
		t.Fatalf("policy = %q, want overwrite", p.ExistingOutput)
	}
	if p.Compress == nil || *p.Compress {
		t.Fatalf("compress = %v, want explicit false preserved", p.Compress)
	}
	if p.Version != "1.4" {
		t.Fatalf("version = %q, want 1.4", p.Version)
	}
}
