package esd

import (
	"encoding/json"
	"fmt"
)

// GeneratorKind identifies the event generator that produced an MC event.
// The numeric value is the bit position used in the generator mask.
type GeneratorKind int

const (
	GeneratorGeneric GeneratorKind = iota
	GeneratorCocktail
	GeneratorDPMjet
	GeneratorEpos3
	GeneratorEpos
	GeneratorTunedPbPb
	GeneratorGeVSim
	GeneratorHepMC
	GeneratorHerwig
	GeneratorHijing
	GeneratorPythia
	GeneratorToy
	NumGenerators
)

var generatorKindStrings = []string{
	"generic",
	"cocktail",
	"dpmjet",
	"epos3",
	"epos",
	"tuned-pbpb",
	"gevsim",
	"hepmc",
	"herwig",
	"hijing",
	"pythia",
	"toy",
}

func (g GeneratorKind) String() string {
	if g < GeneratorGeneric || g >= NumGenerators {
		return "UNKNOWN"
	}
	return generatorKindStrings[g]
}

func (g GeneratorKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

func (g *GeneratorKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, v := range generatorKindStrings {
		if v == s {
			*g = GeneratorKind(i)
			return nil
		}
	}
	return fmt.Errorf("invalid GeneratorKind: %s", s)
}
