package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"concierge-relay-api/internal/domain/entity"
)

func TestBuildSystemInstructionDefault(t *testing.T) {
	cfg := entity.NewTenantConfig(nil)
	got := BuildSystemInstruction(cfg, "Menu:\n- Coffee $3")

	assert.Contains(t, got, "customer service assistant")
	assert.Contains(t, got, "Match the Customer's Script")
	assert.Contains(t, got, "Menu:\n- Coffee $3")
	assert.NotContains(t, got, "when in doubt")
}

func TestBuildSystemInstructionTargetLanguage(t *testing.T) {
	cfg := entity.NewTenantConfig(map[string]string{entity.FieldTargetLanguage: "Spanish"})
	got := BuildSystemInstruction(cfg, "")

	assert.Contains(t, got, "when in doubt, answer in Spanish")
}

func TestBuildSystemInstructionOverrideWins(t *testing.T) {
	cfg := entity.NewTenantConfig(map[string]string{
		entity.FieldSystemInstruction: "You are a pirate. Answer in rhymes.",
	})
	got := BuildSystemInstruction(cfg, "ship schedule")

	assert.Contains(t, got, "You are a pirate. Answer in rhymes.")
	assert.Contains(t, got, "**Context (Knowledge Base):**\nship schedule")
	assert.NotContains(t, got, "customer service assistant")
}

func TestBuildSystemInstructionShortOverrideIgnored(t *testing.T) {
	// 长度不超过阈值的覆盖视为未设置
	cfg := entity.NewTenantConfig(map[string]string{entity.FieldSystemInstruction: "abc"})
	got := BuildSystemInstruction(cfg, "")

	assert.Contains(t, got, "customer service assistant")
}
