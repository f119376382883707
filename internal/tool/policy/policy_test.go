package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramName(t *testing.T) {
	assert.Equal(t, "npm", ProgramName("npm install"))
	assert.Equal(t, "npm", ProgramName("   npm\tinstall"))
	assert.Equal(t, "", ProgramName("   "))
}

func TestIsAllowed(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name    string
		command string
		want    bool
	}{
		{"Default", "npm install", true},
		{"PathPrefixed", "./node_modules/.bin/jest --watch", true},
		{"AbsolutePath", "/usr/bin/git status", true},
		{"NotListed", "rm -rf /", false},
		{"Empty", "", false},
		{"PrefixIsNotEnough", "npmx install", false},
		{"ChainingNotInspected", "echo hi && rm -rf /", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAllowed(tt.command, p))
		})
	}
}

func TestIsAllowed_ProjectAdditions(t *testing.T) {
	p := DefaultPolicy()
	p.AllowedCommands = []string{"terraform", "./scripts/deploy.sh"}

	assert.True(t, IsAllowed("terraform plan", p))
	assert.True(t, IsAllowed("./scripts/deploy.sh staging", p))
	assert.False(t, IsAllowed("kubectl apply", p))
	// Additions never remove defaults.
	assert.True(t, IsAllowed("npm test", p))
}

func TestAllowedPrefixes_SortedAndDeduplicated(t *testing.T) {
	p := &ProjectPolicy{AllowedCommands: []string{"npm", "zz-tool", "", "aa-tool"}}

	got := p.AllowedPrefixes()

	assert.IsNonDecreasing(t, got)
	assert.Equal(t, "aa-tool", got[0])
	assert.Equal(t, "zz-tool", got[len(got)-1])
	count := 0
	for _, c := range got {
		if c == "npm" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.NotContains(t, got, "")
}

func TestCheck(t *testing.T) {
	p := DefaultPolicy()
	hardened := CheckOptions{RejectMetacharacters: true}

	t.Run("Allowed", func(t *testing.T) {
		assert.NoError(t, Check("go test ./...", p, hardened))
	})

	t.Run("NotAllowed_ListsPrefixes", func(t *testing.T) {
		err := Check("curl http://example.com", p, hardened)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrPolicyViolation))

		var v *ViolationError
		require.ErrorAs(t, err, &v)
		assert.Equal(t, "curl", v.Program)
		assert.Equal(t, ReasonNotAllowed, v.Reason)
		assert.Contains(t, v.Allowed, "npm")
		assert.Contains(t, err.Error(), "curl http://example.com")
		assert.Contains(t, err.Error(), "allowed commands:")
		assert.True(t, v.InvalidInput())
	})

	t.Run("Metacharacters_RejectedWhenHardened", func(t *testing.T) {
		for _, cmd := range []string{"echo hi; rm -rf /", "ls | sh", "echo $(whoami)", "cat < /etc/passwd", "echo `id`"} {
			err := Check(cmd, p, hardened)
			var v *ViolationError
			require.ErrorAs(t, err, &v, cmd)
			assert.Equal(t, ReasonMetacharacters, v.Reason, cmd)
		}
	})

	t.Run("QuotedMetacharacters_Allowed", func(t *testing.T) {
		assert.NoError(t, Check(`git commit -m "fix: a; b (c)"`, p, hardened))
		assert.NoError(t, Check(`echo 'a | b'`, p, hardened))
	})

	t.Run("Metacharacters_AllowedWhenNotHardened", func(t *testing.T) {
		assert.NoError(t, Check("echo hi && ls", p, CheckOptions{}))
	})

	t.Run("Env_NotAllowed", func(t *testing.T) {
		for _, cmd := range []string{"env rm -rf /tmp/x", "env sh -c id", "/usr/bin/env node"} {
			var v *ViolationError
			require.ErrorAs(t, Check(cmd, p, hardened), &v, cmd)
			assert.Equal(t, ReasonNotAllowed, v.Reason, cmd)
		}
		assert.NoError(t, Check("printenv PATH", p, hardened))
	})

	t.Run("FindActions_Rejected", func(t *testing.T) {
		for _, cmd := range []string{
			"find . -delete",
			"find . -name '*.tmp' -exec rm {} +",
			"find . -execdir sh -c id",
			"find . -ok rm {}",
			`find . "-delete"`,
			"/usr/bin/find / -fprint /tmp/out",
		} {
			var v *ViolationError
			require.ErrorAs(t, Check(cmd, p, CheckOptions{}), &v, cmd)
			assert.Equal(t, ReasonUnsafeArguments, v.Reason, cmd)
			assert.True(t, errors.Is(v, ErrPolicyViolation))
		}
	})

	t.Run("FindQuery_Allowed", func(t *testing.T) {
		assert.NoError(t, Check("find . -name '*.go' -type f", p, hardened))
		assert.NoError(t, Check("grep -r -- -delete .", p, hardened))
	})

	t.Run("Empty", func(t *testing.T) {
		var v *ViolationError
		require.ErrorAs(t, Check("  ", p, hardened), &v)
		assert.Equal(t, ReasonEmpty, v.Reason)
	})
}

func TestEscapesRoot(t *testing.T) {
	root := "/work/project"

	tests := []struct {
		path string
		want bool
	}{
		{".", false},
		{"", false},
		{"src/app", false},
		{"/work/project/src", false},
		{"src/../lib", false},
		{"..", true},
		{"../other", true},
		{"src/../../other", true},
		{"/work/projectile", true},
		{"/etc", true},
		{"..hidden", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapesRoot(root, tt.path))
		})
	}
}

func TestLookupTool(t *testing.T) {
	p := &ProjectPolicy{CustomTools: []CustomTool{{Name: "lint", CommandTemplate: "npm run lint -- {args}"}}}

	tool, ok := p.LookupTool("lint")
	assert.True(t, ok)
	assert.Equal(t, "npm run lint -- {args}", tool.CommandTemplate)

	_, ok = p.LookupTool("missing")
	assert.False(t, ok)
}

func TestClone_IsDeep(t *testing.T) {
	p := &ProjectPolicy{AllowedCommands: []string{"a"}, CustomTools: []CustomTool{{Name: "x"}}}
	c := p.Clone()
	c.AllowedCommands[0] = "b"
	c.CustomTools[0].Name = "y"

	assert.Equal(t, "a", p.AllowedCommands[0])
	assert.Equal(t, "x", p.CustomTools[0].Name)
}
