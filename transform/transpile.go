// Package transform wraps esbuild's TypeScript/JSX-to-CommonJS pipeline
// for the Module Loader.
package transform

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Transpile converts source (TypeScript, TSX, or JSX) to CommonJS
// JavaScript, sourceFile is used only for esbuild's error messages and
// inline source map.
func Transpile(source, sourceFile string) (string, error) {
	loader := api.LoaderTS

	switch strings.ToLower(filepath.Ext(sourceFile)) {
	case ".tsx":
		loader = api.LoaderTSX
	case ".jsx":
		loader = api.LoaderJSX
	}

	result := api.Transform(source, api.TransformOptions{
		Loader:     loader,
		Format:     api.FormatCommonJS,
		Target:     api.ES2017,
		Sourcemap:  api.SourceMapInline,
		Platform:   api.PlatformNeutral,
		Sourcefile: sourceFile,
	})

	if len(result.Errors) > 0 {
		return "", fmt.Errorf("%s", result.Errors[0].Text)
	}

	return string(result.Code), nil
}
