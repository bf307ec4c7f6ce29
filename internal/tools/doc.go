// Package tools holds host process helpers shared by the render engines.
package tools
