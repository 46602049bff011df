// Package agent answers natural-language questions about an uploaded lab
// report through an external LLM provider. The provider is configured once
// with a fixed medical-assistant persona and a web-search capability;
// responses stream in as text fragments that the analyzer drains into a
// single answer string.
package agent
