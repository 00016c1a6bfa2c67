package platform

import (
	"regexp"
	"strings"
)

// knownToolPrefixes identify tool-name-like tokens in agent_instructions.
var knownToolPrefixes = []string{
	"vnstock_",
	"platform_",
}

// toolTokenPattern matches word-boundary tokens that look like tool names.
var toolTokenPattern = regexp.MustCompile(`\b([a-z][a-z0-9]*(?:_[a-z0-9]+)+)\b`)

// validateAgentInstructions warns about tool names in agent_instructions
// that are not registered, such as stale references after a rename.
func (p *Platform) validateAgentInstructions() {
	for _, token := range p.unknownToolReferences() {
		p.logger.Warn("agent_instructions references unrecognized tool",
			"token", token,
			"hint", "verify the tool name exists or remove the stale reference",
		)
	}
}

func (p *Platform) unknownToolReferences() []string {
	instructions := p.config.Server.AgentInstructions
	if instructions == "" {
		return nil
	}

	registered := make(map[string]struct{}, len(p.tools))
	for _, t := range p.tools {
		registered[t] = struct{}{}
	}

	var unknown []string
	seen := make(map[string]bool)
	for _, token := range toolTokenPattern.FindAllString(instructions, -1) {
		if !hasKnownPrefix(token) || seen[token] {
			continue
		}
		seen[token] = true
		if _, ok := registered[token]; !ok {
			unknown = append(unknown, token)
		}
	}
	return unknown
}

// hasKnownPrefix reports whether the token starts with a known tool prefix.
func hasKnownPrefix(token string) bool {
	for _, prefix := range knownToolPrefixes {
		if strings.HasPrefix(token, prefix) {
			return true
		}
	}
	return false
}
