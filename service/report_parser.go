package service

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError 模型输出无法解析为预期 JSON 时的类型化错误
type ParseError struct {
	Reason  string
	Snippet string
}

func (e *ParseError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("model output parse failed: %s", e.Reason)
	}
	return fmt.Sprintf("model output parse failed: %s (near %q)", e.Reason, e.Snippet)
}

// KeyInsight 报告中的单条业务洞察
type KeyInsight struct {
	Insight string `json:"insight"`
	Metric  string `json:"metric"`
}

// AnalysisReport 分析端点返回的结构化报告
type AnalysisReport struct {
	ReportTitle       string       `json:"reportTitle"`
	KeyInsights       []KeyInsight `json:"keyInsights"`
	Summary           string       `json:"summary"`
	StepsTaken        []string     `json:"stepsTaken"`
	Recommendations   []string     `json:"recommendations"`
	VisualizationCode string       `json:"visualizationCode,omitempty"`
}

// FollowUpReport 追问端点返回的结构
type FollowUpReport struct {
	Summary           string `json:"summary"`
	VisualizationCode string `json:"visualizationCode,omitempty"`
}

// ExtractJSONObject 从自由文本中提取第一个完整的 JSON 对象。
// 用 json.Decoder 严格解码而不是对大括号做正则匹配，嵌套对象和
// 对象后面的废话文本都能正确处理；出现多个对象时取第一个完整对象。
func ExtractJSONObject(raw string) (json.RawMessage, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return nil, &ParseError{Reason: "no JSON object in output", Snippet: snippet(raw)}
	}

	dec := json.NewDecoder(strings.NewReader(raw[start:]))
	var obj json.RawMessage
	if err := dec.Decode(&obj); err != nil {
		return nil, &ParseError{Reason: err.Error(), Snippet: snippet(raw[start:])}
	}
	if len(obj) == 0 || obj[0] != '{' {
		return nil, &ParseError{Reason: "decoded value is not an object", Snippet: snippet(raw[start:])}
	}
	return obj, nil
}

// DecodeAnalysisReport 严格解析模型输出并做字段校验
func DecodeAnalysisReport(raw string) (*AnalysisReport, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var report AnalysisReport
	if err := json.Unmarshal(obj, &report); err != nil {
		return nil, &ParseError{Reason: err.Error(), Snippet: snippet(string(obj))}
	}
	if strings.TrimSpace(report.ReportTitle) == "" {
		return nil, &ParseError{Reason: "reportTitle is missing"}
	}
	if strings.TrimSpace(report.Summary) == "" {
		return nil, &ParseError{Reason: "summary is missing"}
	}
	return &report, nil
}

func DecodeFollowUpReport(raw string) (*FollowUpReport, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var report FollowUpReport
	if err := json.Unmarshal(obj, &report); err != nil {
		return nil, &ParseError{Reason: err.Error(), Snippet: snippet(string(obj))}
	}
	if strings.TrimSpace(report.Summary) == "" {
		return nil, &ParseError{Reason: "summary is missing"}
	}
	return &report, nil
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
