package parser

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dwellsense/dwellsense/domain/capability"
)

const bulbDescriptor = `{
	"vendor": "Philips",
	"model": "9290012573A",
	"description": "Hue white and color ambiance",
	"exposes": [
		{
			"type": "light",
			"features": [
				{"name": "state", "property": "state"},
				{"name": "brightness", "property": "brightness"},
				{"name": "color_temp", "property": "color_temp"}
			]
		},
		{"type": "numeric", "name": "linkquality", "property": "linkquality"}
	]
}`

func TestParser_Parse_UnifiesExposes(t *testing.T) {
	p := New()

	def, err := p.Parse([]byte(bulbDescriptor))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if def.Key.Vendor != "Philips" {
		t.Errorf("expected vendor Philips, got %s", def.Key.Vendor)
	}
	if def.Key.Model != "9290012573A" {
		t.Errorf("expected model 9290012573A, got %s", def.Key.Model)
	}
	if def.Key.Integration != "zigbee" {
		t.Errorf("expected default integration zigbee, got %s", def.Key.Integration)
	}
	if len(def.Features) != 4 {
		t.Fatalf("expected 4 features, got %d", len(def.Features))
	}

	brightness := def.Feature("brightness")
	if brightness == nil {
		t.Fatal("expected brightness feature")
	}
	if brightness.Category != capability.CategoryLighting {
		t.Errorf("expected lighting category, got %s", brightness.Category)
	}
}

func TestParser_Parse_Idempotent(t *testing.T) {
	p := New()

	first, err := p.Parse([]byte(bulbDescriptor))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Parse([]byte(bulbDescriptor))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first.Features) != len(second.Features) {
		t.Fatalf("feature counts differ: %d vs %d", len(first.Features), len(second.Features))
	}
	for i := range first.Features {
		if !reflect.DeepEqual(first.Features[i], second.Features[i]) {
			t.Errorf("feature %d differs: %+v vs %+v", i, first.Features[i], second.Features[i])
		}
	}
	if first.Key != second.Key {
		t.Errorf("keys differ: %+v vs %+v", first.Key, second.Key)
	}
}

func TestParser_Parse_MissingModel(t *testing.T) {
	p := New()

	_, err := p.Parse([]byte(`{"vendor": "IKEA", "exposes": []}`))
	if !errors.Is(err, capability.ErrParseFailure) {
		t.Errorf("expected ErrParseFailure, got %v", err)
	}
}

func TestParser_Parse_MissingVendor(t *testing.T) {
	p := New()

	_, err := p.Parse([]byte(`{"model": "E1743", "exposes": []}`))
	if !errors.Is(err, capability.ErrParseFailure) {
		t.Errorf("expected ErrParseFailure, got %v", err)
	}
}

func TestParser_Parse_ManufacturerFallback(t *testing.T) {
	p := New()

	def, err := p.Parse([]byte(`{"manufacturer": "Aqara", "model": "WSDCGQ11LM", "exposes": []}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Key.Vendor != "Aqara" {
		t.Errorf("expected vendor Aqara, got %s", def.Key.Vendor)
	}
}

func TestParser_Parse_UnknownExposeTypeRetained(t *testing.T) {
	p := New()

	def, err := p.Parse([]byte(`{
		"vendor": "FutureCorp",
		"model": "X-1",
		"exposes": [{"type": "hologram", "name": "projection", "property": "projection"}]
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(def.Features) != 1 {
		t.Fatalf("expected unknown expose to be retained, got %d features", len(def.Features))
	}
	if def.Features[0].Category != capability.CategoryUnknown {
		t.Errorf("expected unknown category, got %s", def.Features[0].Category)
	}
	if def.Features[0].RawType != "hologram" {
		t.Errorf("expected raw type hologram, got %s", def.Features[0].RawType)
	}
}

func TestParser_Parse_PropertyRefinesSensorCategory(t *testing.T) {
	p := New()

	def, err := p.Parse([]byte(`{
		"vendor": "Develco",
		"model": "EMIZB-132",
		"exposes": [
			{"type": "numeric", "name": "power", "property": "power"},
			{"type": "binary", "name": "water_leak", "property": "water_leak"}
		]
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := def.Feature("power").Category; got != capability.CategoryEnergy {
		t.Errorf("expected energy category for power, got %s", got)
	}
	if got := def.Feature("water_leak").Category; got != capability.CategorySecurity {
		t.Errorf("expected security category for water_leak, got %s", got)
	}
}
