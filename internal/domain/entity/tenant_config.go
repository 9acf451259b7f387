// Package entity 定义领域实体
package entity

import (
	"strconv"
	"strings"
)

// 配置表字段名。表头行中出现的其他字段原样透传。
const (
	FieldModelName            = "model_name"
	FieldModelProvider        = "model_provider"
	FieldTargetLanguage       = "target_language"
	FieldSystemInstruction    = "system_instruction_override"
	FieldContextLocation      = "context_location"
	FieldClientFolderName     = "client_folder_name"
	FieldInputPricePerMillion = "input_price_per_unit"
	FieldOutputPricePerMille  = "output_price_per_unit"
)

// DefaultModelName 配置缺失 model_name 时的兜底模型
const DefaultModelName = "gemini-1.5-flash"

// Provider LLM 提供商的封闭枚举。
// 在配置解析阶段识别一次，而不是在适配器构造时做字符串匹配。
type Provider string

const (
	ProviderGemini  Provider = "gemini"
	ProviderOpenAI  Provider = "openai"
	ProviderUnknown Provider = ""
)

// ParseProvider 大小写不敏感地识别提供商名称
func ParseProvider(name string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gemini":
		return ProviderGemini, true
	case "openai":
		return ProviderOpenAI, true
	default:
		return ProviderUnknown, false
	}
}

// TenantConfig 远程可编辑的租户配置快照。
// 来源是两行表格资源（表头行 = 字段名，数据行 = 值）。
// 任何字段缺失都退化为文档化的默认值，绝不导致请求崩溃。
type TenantConfig struct {
	fields map[string]string
}

// NewTenantConfig 从字段映射创建配置快照
func NewTenantConfig(fields map[string]string) *TenantConfig {
	if fields == nil {
		fields = make(map[string]string)
	}
	return &TenantConfig{fields: fields}
}

// Field 读取任意字段的原始值，未知字段也可读取
func (c *TenantConfig) Field(name string) string {
	if c == nil {
		return ""
	}
	return c.fields[name]
}

// Empty 配置是否不含任何字段
func (c *TenantConfig) Empty() bool {
	return c == nil || len(c.fields) == 0
}

// ModelName 模型名，缺失时回退到 DefaultModelName
func (c *TenantConfig) ModelName() string {
	if v := c.Field(FieldModelName); v != "" {
		return v
	}
	return DefaultModelName
}

// Provider 返回识别出的提供商；第二个返回值为 false 表示
// 字段缺失或取值未知，调用方应回退到默认提供商并告警。
func (c *TenantConfig) Provider() (Provider, bool) {
	return ParseProvider(c.Field(FieldModelProvider))
}

// TargetLanguage 目标回复语言，可为空
func (c *TenantConfig) TargetLanguage() string {
	return c.Field(FieldTargetLanguage)
}

// SystemInstructionOverride 运营方自定义的系统指令，可为空
func (c *TenantConfig) SystemInstructionOverride() string {
	return c.Field(FieldSystemInstruction)
}

// ContextLocation 知识库抓取地址，可为空
func (c *TenantConfig) ContextLocation() string {
	return c.Field(FieldContextLocation)
}

// ClientFolderName 租户子目录，可为空
func (c *TenantConfig) ClientFolderName() string {
	return c.Field(FieldClientFolderName)
}

// InputPricePerMillion 每百万输入 token 单价，解析失败按 0 计
func (c *TenantConfig) InputPricePerMillion() float64 {
	return parsePrice(c.Field(FieldInputPricePerMillion))
}

// OutputPricePerMillion 每百万输出 token 单价，解析失败按 0 计
func (c *TenantConfig) OutputPricePerMillion() float64 {
	return parsePrice(c.Field(FieldOutputPricePerMille))
}

func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// Overrides 单次请求的临时覆盖项
type Overrides struct {
	Folder string
	Model  string
}

// ApplyOverrides 返回应用覆盖项后的新快照，不修改原配置。
// folder 覆盖 client_folder_name，model 覆盖 model_name。
func (c *TenantConfig) ApplyOverrides(o Overrides) *TenantConfig {
	fields := make(map[string]string)
	if c != nil {
		for k, v := range c.fields {
			fields[k] = v
		}
	}
	if o.Folder != "" {
		fields[FieldClientFolderName] = o.Folder
	}
	if o.Model != "" {
		fields[FieldModelName] = o.Model
	}
	return NewTenantConfig(fields)
}
