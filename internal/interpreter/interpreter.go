// Package interpreter converts a package-install request into an ordered
// list of shell commands using an LLM provider. It is the component behind
// `cortex interpret`, which the dashboard invokes as its external planner
// in dry-run JSON mode.
package interpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"cortex/internal/logging"
)

const systemPrompt = `You are a Linux system command expert. Convert natural language requests into safe, validated bash commands.

Rules:
1. Return ONLY a JSON array of commands
2. Each command must be a safe, executable bash command
3. Commands should be atomic and sequential
4. Avoid destructive operations without explicit user confirmation
5. Use package managers appropriate for Debian/Ubuntu systems (apt)
6. Include necessary privilege escalation (sudo) when required
7. Validate command syntax before returning

Format:
{"commands": ["command1", "command2", ...]}

Example request: "install docker with nvidia support"
Example response: {"commands": ["sudo apt update", "sudo apt install -y docker.io", "sudo apt install -y nvidia-docker2", "sudo systemctl restart docker"]}`

// dangerousPatterns are rejected regardless of what the model returns.
var dangerousPatterns = []string{
	"rm -rf /",
	"dd if=",
	"mkfs.",
	"> /dev/sda",
	"fork bomb",
	":(){ :|:& };:",
}

// Interpreter plans shell commands for a request via an LLM client.
type Interpreter struct {
	client LLMClient
}

// New builds an interpreter from the configured credentials. Provider
// selection follows the environment: Anthropic wins if both keys are set.
// CORTEX_FAKE_COMMANDS short-circuits the LLM entirely, for tests and
// offline demos.
func New() (*Interpreter, error) {
	if os.Getenv("CORTEX_FAKE_COMMANDS") != "" {
		return &Interpreter{client: fakeClient{}}, nil
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return &Interpreter{client: NewAnthropicClient(key)}, nil
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return &Interpreter{client: NewOpenAIClient(key)}, nil
	}
	return nil, fmt.Errorf("no API key found; set ANTHROPIC_API_KEY or OPENAI_API_KEY")
}

// NewWithClient builds an interpreter around an explicit client.
func NewWithClient(client LLMClient) *Interpreter {
	return &Interpreter{client: client}
}

// Interpret returns the validated command plan for a request.
func (i *Interpreter) Interpret(ctx context.Context, request string) ([]string, error) {
	if strings.TrimSpace(request) == "" {
		return nil, fmt.Errorf("request cannot be empty")
	}
	logging.Debugf(logging.CategoryPlanner, "interpreting: %s", request)

	reply, err := i.client.CompleteWithSystem(ctx, systemPrompt, "install "+request)
	if err != nil {
		return nil, err
	}
	commands, err := parseCommands(reply)
	if err != nil {
		return nil, err
	}
	commands = validateCommands(commands)
	if len(commands) == 0 {
		return nil, fmt.Errorf("no commands generated")
	}
	return commands, nil
}

// parseCommands extracts the {"commands": [...]} object from a model reply,
// tolerating markdown code fences around it.
func parseCommands(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.Index(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}

	var parsed struct {
		Commands []string `json:"commands"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}
	var commands []string
	for _, c := range parsed.Commands {
		if strings.TrimSpace(c) != "" {
			commands = append(commands, c)
		}
	}
	return commands, nil
}

// validateCommands drops commands matching known-destructive patterns.
func validateCommands(commands []string) []string {
	var validated []string
	for _, cmd := range commands {
		lower := strings.ToLower(cmd)
		dangerous := false
		for _, pattern := range dangerousPatterns {
			if strings.Contains(lower, pattern) {
				dangerous = true
				break
			}
		}
		if dangerous {
			logging.Warnf(logging.CategoryPlanner, "dropped dangerous command: %s", cmd)
			continue
		}
		validated = append(validated, cmd)
	}
	return validated
}

// fakeClient returns canned commands from CORTEX_FAKE_COMMANDS, a JSON
// object in the same {"commands": [...]} shape the LLM produces.
type fakeClient struct{}

func (fakeClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	raw := os.Getenv("CORTEX_FAKE_COMMANDS")
	if raw == "" {
		return "", fmt.Errorf("CORTEX_FAKE_COMMANDS not set")
	}
	return raw, nil
}
