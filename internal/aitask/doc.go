// Package aitask contains the executors behind the marketing task types.
//
// Content generation and knowledge indexing call out to a generation.Generator;
// analytics is computed locally. Parameters arrive as loosely typed maps decoded
// from JSON and are coerced with spf13/cast.
package aitask
