package clients

import (
	"testing"

	"github.com/google/uuid"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  acme  ", "ACME"},
		{"Clínica São Lucas", "CLINICA SAO LUCAS"},
		{"HOSPITAL\t  DO   CORAÇÃO", "HOSPITAL DO CORACAO"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func testDirectory() *Directory {
	return NewDirectory(
		&ClientIdentity{ID: uuid.New(), LegalName: "Centro de Imagem Acme Ltda", FantasyName: "ACME", SourceName: "ACME_MATRIZ", Active: true},
		&ClientIdentity{ID: uuid.New(), LegalName: "Hospital São Lucas S/A", FantasyName: "HSL", SourceName: "SAO LUCAS", Active: false},
		&ClientIdentity{ID: uuid.New(), LegalName: "Clínica Beta", SourceName: "BETA_RX"},
	)
}

func TestDirectory_ResolveVariants(t *testing.T) {
	d := testDirectory()
	tests := []struct {
		raw, want string
	}{
		{"ACME", "ACME"},
		{"acme_matriz", "ACME"},
		{"Centro de Imagem ACME LTDA", "ACME"},
		{"sao lucas", "HSL"},
		{"Hospital Sao Lucas S/A", "HSL"},
		{"BETA_RX", "Clínica Beta"},
		{"Desconhecido", "Desconhecido"},
	}
	for _, tt := range tests {
		if got := d.Resolve(tt.raw); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestDirectory_ResolveIsIdempotent(t *testing.T) {
	d := testDirectory()
	// A second identity whose legal name collides with the first's fantasy
	// name must not break idempotence.
	d.Register(&ClientIdentity{ID: uuid.New(), LegalName: "ACME", FantasyName: "ACME NORTE"})

	names := []string{"ACME", "acme_matriz", "ACME NORTE", "sao lucas", "HSL", "BETA_RX",
		"Clínica Beta", "unknown client", "  spaced  ", ""}
	for _, n := range names {
		once := d.Resolve(n)
		if twice := d.Resolve(once); twice != once {
			t.Errorf("Resolve not idempotent for %q: %q then %q", n, once, twice)
		}
	}
}

func TestDirectory_UnmappedPassThrough(t *testing.T) {
	d := NewDirectory()
	if got := d.Resolve(" raw name "); got != " raw name " {
		t.Errorf("expected unchanged pass-through, got %q", got)
	}
	if d.Known("raw name") {
		t.Error("expected unknown name")
	}
	if s := d.Suggest("raw name"); s != "" {
		t.Errorf("expected no suggestion from an empty directory, got %q", s)
	}
}

func TestDirectory_Lookup(t *testing.T) {
	d := testDirectory()
	id, ok := d.Lookup("HSL")
	if !ok || id.Active {
		t.Fatalf("expected inactive HSL identity, got %+v %v", id, ok)
	}
	if _, ok := d.Lookup("sao lucas"); ok {
		t.Error("Lookup is by canonical name only")
	}
	if n := len(d.Identities()); n != 3 {
		t.Errorf("expected 3 identities, got %d", n)
	}
}

func TestDirectory_Suggest(t *testing.T) {
	d := testDirectory()
	if got := d.Suggest("ACME MATRIZ SP"); got != "ACME" {
		t.Errorf("expected suggestion ACME, got %q", got)
	}
	// Suggestions never change resolution.
	if got := d.Resolve("ACME MATRIZ SP"); got != "ACME MATRIZ SP" {
		t.Errorf("expected pass-through, got %q", got)
	}
}

func TestClientIdentity_CanonicalName(t *testing.T) {
	c := &ClientIdentity{LegalName: "Legal", SourceName: "SRC"}
	if c.CanonicalName() != "Legal" {
		t.Errorf("expected legal fallback, got %q", c.CanonicalName())
	}
	c = &ClientIdentity{SourceName: " SRC "}
	if c.CanonicalName() != "SRC" {
		t.Errorf("expected source fallback, got %q", c.CanonicalName())
	}
	if len(c.Variants()) != 1 {
		t.Errorf("expected blank variants skipped, got %v", c.Variants())
	}
}
