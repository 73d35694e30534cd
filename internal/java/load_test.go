package java

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/jcg/internal/model"
)

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadProject(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/main/java/com/shop/App.java", `package com.shop;

public class App {
    public void run() {
        Worker w = new Worker();
        w.work();
    }
}
`)
	writeSource(t, root, "src/main/java/com/shop/Worker.java", `package com.shop;

public class Worker {
    public void work() {
    }
}
`)
	// Build output must not be picked up.
	writeSource(t, root, "target/generated/Junk.java", `package junk; public class Junk {}`)
	writeSource(t, root, "README.md", "not java")

	prog, err := Load(root)
	require.NoError(t, err)

	assert.Len(t, prog.Classes, 2)
	_, ok := prog.FindClass("junk.Junk")
	assert.False(t, ok, "files under target/ are skipped")

	app, ok := prog.FindClass("com.shop.App")
	require.True(t, ok)
	require.Len(t, app.Methods, 1)

	// Cross-file binding: the call in App resolves to Worker.
	res := prog.Resolve(app.Methods[0], app.Methods[0].Invocations[1], model.ResolveByName)
	require.NotNil(t, res.Method)
	assert.Equal(t, "com.shop.Worker.work()", res.Method.Signature())
}

func TestFindSourceFiles(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "b/Beta.java", `package b; public class Beta {}`)
	writeSource(t, root, "a/Alpha.java", `package a; public class Alpha {}`)
	writeSource(t, root, ".hidden/Skipped.java", `package h; public class Skipped {}`)

	files, err := FindSourceFiles(root)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(root, "a/Alpha.java"), files[0], "walk order is lexical")
	assert.Equal(t, filepath.Join(root, "b/Beta.java"), files[1])
}
