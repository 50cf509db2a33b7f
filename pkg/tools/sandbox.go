package tools

import (
	"strings"
)

// allowedCommands is the fixed allowlist of read-only utilities the bash
// tool may run. Everything not listed here is denied.
var allowedCommands = map[string]bool{
	// File system (read-only)
	"ls": true, "cat": true, "head": true, "tail": true, "find": true,
	"tree": true, "file": true, "stat": true, "wc": true,
	// Text processing
	"grep": true, "sed": true, "awk": true, "cut": true, "sort": true,
	"uniq": true, "diff": true, "patch": true,
	// System info
	"pwd": true, "whoami": true, "date": true, "uptime": true,
	"uname": true, "hostname": true, "env": true, "printenv": true,
	// Process info
	"ps": true, "top": true, "df": true, "du": true, "free": true,
	// Network diagnostics (read-only)
	"ping": true, "traceroute": true, "nslookup": true, "dig": true,
	"host": true, "whois": true,
	// Output
	"echo": true, "printf": true,
	// Archives (listing only; tar is further restricted below)
	"zip": true, "unzip": true, "gzip": true, "gunzip": true,
	"bzip2": true, "bunzip2": true,
}

var gitReadSubcommands = []string{
	"status", "log", "diff", "show", "branch", "remote",
	"ls-files", "ls-tree", "rev-parse",
}

// conditionallyAllowed maps commands that need their arguments validated
// against a read-only sub-command whitelist.
var conditionallyAllowed = map[string]func(args string) bool{
	"git": func(args string) bool {
		trimmed := strings.TrimSpace(args)
		for _, sub := range gitReadSubcommands {
			if strings.HasPrefix(trimmed, sub) {
				return true
			}
		}
		return false
	},
	"tar": func(args string) bool {
		// Listing only, never extraction or creation.
		return strings.Contains(args, "-t") || strings.Contains(args, "--list")
	},
}

// IsCommandAllowed applies the default-deny sandbox policy: the command
// must be free of shell escape metacharacters and its base executable
// must be allowlisted. This is a policy filter, not a kernel-level
// isolation boundary.
func IsCommandAllowed(command string) bool {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return false
	}

	if hasDangerousShellFeatures(command) {
		return false
	}

	tokens := strings.Fields(trimmed)
	baseCmd := strings.ToLower(tokens[0])

	// Strip any path prefix (/bin/ls -> ls).
	if idx := strings.LastIndex(baseCmd, "/"); idx != -1 {
		baseCmd = baseCmd[idx+1:]
	}
	if baseCmd == "" {
		return false
	}

	if check, ok := conditionallyAllowed[baseCmd]; ok {
		return check(strings.Join(tokens[1:], " "))
	}
	return allowedCommands[baseCmd]
}

// hasDangerousShellFeatures rejects metacharacters that would let a
// command escape the allowlist model.
func hasDangerousShellFeatures(command string) bool {
	// Statement separators.
	if strings.Contains(command, ";") || strings.Contains(command, "&&") || strings.Contains(command, "||") {
		return true
	}

	// Pipes, unless provably inside a quoted string.
	for idx := 0; idx < len(command); idx++ {
		if command[idx] == '|' && !isInQuotes(command, idx) {
			return true
		}
	}

	// Redirection.
	if strings.Contains(command, ">") || strings.Contains(command, "<") {
		return true
	}

	// Command substitution.
	if strings.Contains(command, "$(") || strings.Contains(command, "`") {
		return true
	}

	// Background execution.
	if strings.HasSuffix(strings.TrimSpace(command), "&") {
		return true
	}

	return false
}

// isInQuotes reports whether the byte at position sits inside an
// unmatched single or double quote opened earlier in the string.
func isInQuotes(s string, position int) bool {
	inSingle := false
	inDouble := false
	for i := 0; i < position; i++ {
		switch s[i] {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		}
	}
	return inSingle || inDouble
}
