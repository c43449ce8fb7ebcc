package converter

import "github.com/alice-run3/ao2d_go/pkg/esd"

// GeneratorMask returns one bit per generator kind found in the header.
// The generic bit is set for any header; cocktails add the bits of all the
// headers they contain.
func GeneratorMask(h *esd.GeneratorHeader) int16 {
	if h == nil {
		return 0
	}
	mask := int16(1) << esd.GeneratorGeneric
	if h.Kind > esd.GeneratorGeneric && h.Kind < esd.NumGenerators {
		mask |= int16(1) << h.Kind
	}
	if h.Kind == esd.GeneratorCocktail {
		for i := range h.Headers {
			mask |= GeneratorMask(&h.Headers[i])
		}
	}
	return mask
}
