package material

import (
	"fmt"
	"strings"
)

// Layered materials name their inputs after the base input with a layer marker.
var layerNameConventions = []string{
	"Texture%sA",
	"Texture%s1",
	"Texture%s0",
	"TextureLayer1%s",
}

// LayeredNameComparer treats first layer input names as equal to known unlayered ones,
// so TextureColorA matches TextureColor.
type LayeredNameComparer struct {
	unlayered map[string]struct{}
}

func NewLayeredNameComparer(unlayered []string) *LayeredNameComparer {
	c := &LayeredNameComparer{unlayered: make(map[string]struct{}, len(unlayered))}
	for _, name := range unlayered {
		c.unlayered[name] = struct{}{}
	}
	return c
}

func (c *LayeredNameComparer) known(name string) bool {
	_, ok := c.unlayered[name]
	return ok
}

func (c *LayeredNameComparer) Equal(layered, unlayered string) bool {
	if layered == unlayered {
		return true
	}
	if !c.known(unlayered) {
		if !c.known(layered) {
			return false
		}
		layered, unlayered = unlayered, layered
	}

	base := strings.TrimPrefix(unlayered, "Texture")
	for _, template := range layerNameConventions {
		if fmt.Sprintf(template, base) == layered {
			return true
		}
	}
	return false
}

func (c *LayeredNameComparer) InputEqual(a, b Input) bool {
	return a.Channel == b.Channel && c.Equal(a.Name, b.Name)
}

func (c *LayeredNameComparer) InputsEqual(a, b []Input) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !c.InputEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
