// Package model defines the provider-neutral interface between agents and
// language model backends. Providers translate the normalized Request into
// vendor API calls and map the reply onto the message/tool_call tagged union;
// subpackages implement the Anthropic and OpenAI adapters.
package model
