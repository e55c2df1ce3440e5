package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Beenunn17/ReimaginedInd2/config"
)

var ErrPromptRequired = errors.New("prompt is required")

var plotKeywords = []string{"plot", "chart", "graph", "visualize", "bar", "line", "scatter", "hist"}

// ReportService 组装分析 prompt、调用生成模型并严格解析返回的 JSON 报告
type ReportService struct {
	Store  *ArtifactStore
	Client *LLMClient
}

func NewReportService() *ReportService {
	return &ReportService{
		Store:  NewArtifactStore(config.DataDir()),
		Client: NewLLMClient(),
	}
}

// Analyze 对一个数据集回答业务问题，返回结构化报告
func (s *ReportService) Analyze(ctx context.Context, datasetFilename, prompt string) (*AnalysisReport, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrPromptRequired
	}

	schema, err := s.datasetSchema(datasetFilename)
	if err != nil {
		return nil, err
	}

	visualizationInstruction := ""
	lowered := strings.ToLower(prompt)
	for _, keyword := range plotKeywords {
		if strings.Contains(lowered, keyword) {
			visualizationInstruction = "The user has specifically requested a visualization, so you MUST provide relevant code for the 'visualizationCode' key."
			break
		}
	}

	fullPrompt := fmt.Sprintf(`You are a world-class data analytics consultant for 'PuckPro', an e-commerce brand selling hockey equipment.
You are given a tabular dataset with the schema: %s
The user's business question is: %q
%s
Your task is to conduct a thorough analysis and present your findings as a strategic, executive-level report in a single JSON object with keys:
reportTitle, keyInsights (array of {insight, metric}), visualizationCode, summary, stepsTaken, recommendations.
IMPORTANT ANALYTICAL RULE: You MUST consider the magnitude and statistical significance of your findings.
Ensure the final output is ONLY the JSON object.`, schema, prompt, visualizationInstruction)

	raw, err := s.Client.GenerateContent(ctx, fullPrompt)
	if err != nil {
		return nil, err
	}
	return DecodeAnalysisReport(raw)
}

// FollowUp 在既有分析的上下文里只回答最新的追问
func (s *ReportService) FollowUp(ctx context.Context, datasetFilename, originalPrompt, history, followUpPrompt string) (*FollowUpReport, error) {
	if strings.TrimSpace(followUpPrompt) == "" {
		return nil, ErrPromptRequired
	}

	schema, err := s.datasetSchema(datasetFilename)
	if err != nil {
		return nil, err
	}

	fullPrompt := fmt.Sprintf(`You are a data analytics consultant continuing a conversation for 'PuckPro'.
A tabular dataset with schema %s is available.
The original analysis was for the request: %q
The conversation history is: --- %s ---
The user's new follow-up question is: %q
Your task is to answer ONLY the newest follow-up question.
Structure your output as a JSON object: {"visualizationCode": "...", "summary": "..."}
Ensure the final output is ONLY the JSON object.`, schema, originalPrompt, history, followUpPrompt)

	raw, err := s.Client.GenerateContent(ctx, fullPrompt)
	if err != nil {
		return nil, err
	}
	return DecodeFollowUpReport(raw)
}

// datasetSchema 给 prompt 用的列名/类型描述
func (s *ReportService) datasetSchema(datasetFilename string) (string, error) {
	filePath, err := s.Store.DatasetPath(datasetFilename)
	if err != nil {
		return "", err
	}
	table, err := LoadCSVTable(filePath)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		kind := "string"
		if col.Numeric {
			kind = "number"
		}
		parts = append(parts, fmt.Sprintf("%s:%s", col.Name, kind))
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}
