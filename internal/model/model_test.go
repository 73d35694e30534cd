package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassSimpleName(t *testing.T) {
	assert.Equal(t, "OrderService", (&Class{Name: "com.acme.OrderService"}).SimpleName())
	assert.Equal(t, "Main", (&Class{Name: "Main"}).SimpleName())
}

func TestMethodSignature(t *testing.T) {
	m := &Method{
		Class: "com.acme.OrderService",
		Name:  "save",
		Params: []Param{
			{Name: "order", Type: "Order"},
			{Name: "flush", Type: "boolean"},
		},
	}
	assert.Equal(t, "com.acme.OrderService.save(Order, boolean)", m.Signature())
	assert.Equal(t, "com.acme.OrderService.save", m.QualifiedName())

	empty := &Method{Class: "com.acme.App", Name: "main"}
	assert.Equal(t, "com.acme.App.main()", empty.Signature())
}

func TestProgramFindClass(t *testing.T) {
	prog := NewProgram("java", ".", []*Class{
		{Name: "com.zeta.Util"},
		{Name: "com.alpha.Util"},
		{Name: "com.acme.OrderService"},
	})

	t.Run("qualified name", func(t *testing.T) {
		c, ok := prog.FindClass("com.acme.OrderService")
		require.True(t, ok)
		assert.Equal(t, "com.acme.OrderService", c.Name)
	})

	t.Run("simple name picks the first in sorted order", func(t *testing.T) {
		c, ok := prog.FindClass("Util")
		require.True(t, ok)
		assert.Equal(t, "com.alpha.Util", c.Name)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, ok := prog.FindClass("com.acme.Missing")
		assert.False(t, ok)
	})
}

func TestProgramFindMethod(t *testing.T) {
	cls := &Class{
		Name: "com.acme.Repo",
		Methods: []*Method{
			{Class: "com.acme.Repo", Name: "save", Params: []Param{{Name: "o", Type: "Order"}}},
			{Class: "com.acme.Repo", Name: "save", Params: []Param{{Name: "s", Type: "String"}}},
			{Class: "com.acme.Repo", Name: "delete"},
		},
	}
	prog := NewProgram("java", ".", []*Class{cls})

	m, ok := prog.FindMethod(cls, "save")
	require.True(t, ok)
	assert.Equal(t, "com.acme.Repo.save(Order)", m.Signature(),
		"overloads are not disambiguated, declaration order decides")

	_, ok = prog.FindMethod(cls, "truncate")
	assert.False(t, ok)

	assert.Equal(t, 3, prog.MethodCount())
}
