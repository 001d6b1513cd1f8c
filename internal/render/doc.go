// Package render turns fetched unit content into output documents.
//
// The orchestrator only knows the Renderer interface; HTMLRenderer is
// the shipped implementation and writes one self-contained index.html
// per item, with image references already rewritten to the local
// images/ directory by the time content reaches a renderer.
package render
