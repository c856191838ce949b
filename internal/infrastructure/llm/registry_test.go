package llm

import (
	"context"
	"testing"
)

func TestRegistryFirstRegisteredIsDefault(t *testing.T) {
	reg := NewRegistry()

	first := NewMockProvider()
	reg.Register(first)
	reg.Register(namedMock{MockProvider: NewMockProvider(), name: "other"})

	def, err := reg.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if def.Name() != "mock" {
		t.Errorf("default = %q, want mock", def.Name())
	}
}

func TestRegistrySetDefault(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewMockProvider())
	reg.Register(namedMock{MockProvider: NewMockProvider(), name: "other"})

	if err := reg.SetDefault("other"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	def, _ := reg.Default()
	if def.Name() != "other" {
		t.Errorf("default = %q, want other", def.Name())
	}

	if err := reg.SetDefault("missing"); err == nil {
		t.Error("SetDefault accepted an unregistered name")
	}
}

func TestRegistryGetAndList(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Default(); err == nil {
		t.Error("empty registry should have no default")
	}

	reg.Register(NewMockProvider())

	if _, err := reg.Get("mock"); err != nil {
		t.Errorf("Get(mock): %v", err)
	}
	if _, err := reg.Get("missing"); err == nil {
		t.Error("Get accepted an unregistered name")
	}
	if names := reg.List(); len(names) != 1 || names[0] != "mock" {
		t.Errorf("List = %v", names)
	}

	health := reg.HealthCheck(context.Background())
	if !health["mock"] {
		t.Errorf("health = %v, mock should be available", health)
	}
}

// namedMock overrides the mock provider's name for registry tests.
type namedMock struct {
	*MockProvider
	name string
}

func (n namedMock) Name() string { return n.name }
