// Package mcp exposes the scoring engine as MCP tools over stdio.
//
// Each tool takes outline lines plus optional own scores, builds a fresh
// forest, runs a full scoring pass and returns structured output. No state
// is kept between calls.
package mcp
