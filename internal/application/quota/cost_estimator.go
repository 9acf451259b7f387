// Package quota 提供请求成本估算能力
package quota

import (
	"fmt"
	"math"
)

// 估算口径：约 4 字符一个 token；回复按 50 个英文单词假设，
// 每单词约 1.33 个 token。
const (
	charsPerToken  = 4
	estOutputWords = 50
	tokensPerWord  = 1.33
)

// CostEstimate 单次交互的成本估算。仅用于观测与记账展示，
// 不参与任何控制流，也从不持久化。
type CostEstimate struct {
	InputTokens     int     `json:"input_tokens"`
	EstOutputTokens int     `json:"est_output_tokens"`
	InputCost       float64 `json:"input_cost"`
	OutputCost      float64 `json:"output_cost"`
	TotalCost       string  `json:"total_cost"`
	Currency        string  `json:"currency"`
}

// Estimate 纯函数：按字符数估算 token 与美元成本。
// 单价按每百万 token 计；TotalCost 固定渲染 6 位小数
// （微美分粒度）。
func Estimate(inputText string, inputPricePerM, outputPricePerM float64) CostEstimate {
	inputTokens := int(math.Ceil(float64(len(inputText)) / charsPerToken))
	outputTokens := int(math.Ceil(estOutputWords * tokensPerWord))

	inputCost := float64(inputTokens) / 1_000_000 * inputPricePerM
	outputCost := float64(outputTokens) / 1_000_000 * outputPricePerM

	return CostEstimate{
		InputTokens:     inputTokens,
		EstOutputTokens: outputTokens,
		InputCost:       inputCost,
		OutputCost:      outputCost,
		TotalCost:       fmt.Sprintf("%.6f", inputCost+outputCost),
		Currency:        "USD",
	}
}
