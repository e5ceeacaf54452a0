package acl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenericRightsDefaults(t *testing.T) {
	g := DefaultGenericRights()

	assert.Equal(t, []string{"read"}, g.GenericsFor("http_get"))
	assert.ElementsMatch(t, []string{"write", "delete"}, g.GenericsFor("http_delete"))
	assert.Equal(t, []string{"execute"}, g.GenericsFor("HTTP_POST"), "lookup is case-insensitive")
	assert.Empty(t, g.GenericsFor("nosuch"))

	assert.Equal(t, []string{"http_get", "http_head", "http_trace", "http_options"}, g.SpecificsFor("read"))
}

func TestGenericRightsRegisterDedup(t *testing.T) {
	g := NewGenericRights()
	g.Register("read", "http_get")
	g.Register("read", "HTTP_GET")
	g.Register("read", " http_get ")
	g.Register("read", "webdav_propfind")

	assert.Equal(t, []string{"http_get", "webdav_propfind"}, g.SpecificsFor("read"))
	assert.Equal(t, []string{"read"}, g.Names())
}

func TestGenericRightsOrderPreserved(t *testing.T) {
	g := NewGenericRights()
	g.Register("zeta", "op1")
	g.Register("alpha", "op1")

	assert.Equal(t, []string{"zeta", "alpha"}, g.Names())
	assert.Equal(t, []string{"zeta", "alpha"}, g.GenericsFor("op1"))
}

func TestGenericRightsNilSafe(t *testing.T) {
	var g *GenericRights
	assert.Empty(t, g.GenericsFor("http_get"))
	assert.Empty(t, g.SpecificsFor("read"))
}
