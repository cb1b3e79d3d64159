package notes

import (
	"strings"
	"testing"
	"time"
)

func sampleDraft() *Draft {
	return &Draft{
		Title:           "深入聊聊分布式系统",
		PodcastName:     "技术脱口秀",
		SourceURL:       "https://www.xiaoyuzhoufm.com/episode/abc123",
		AudioURL:        "https://cdn.example.com/abc123.m4a",
		DurationSeconds: 5400,
		ProcessedAt:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Keywords:        []string{"分布式", "一致性"},
		Overview:        "本期讨论分布式系统中的一致性取舍。",
		Insights:        []string{"共识协议的成本常被低估", "可用性和一致性不是二选一"},
		Chapters: []Chapter{
			{Title: "开场", StartSeconds: 0, EndSeconds: 120, Summary: "嘉宾介绍"},
			{Title: "CAP | 再思考", StartSeconds: 120, EndSeconds: 3600, Summary: "主题讨论"},
		},
		Segments: []Segment{
			{
				Index:        0,
				Topic:        "共识协议",
				StartSeconds: 0,
				EndSeconds:   720,
				Summary:      "讨论 Raft 与 Paxos 的差异。",
				Quotes:       []string{"工程上 Raft 赢在可解释性。"},
				KeyPoints:    []string{"Raft 易于实现", "Paxos 变体繁多"},
			},
		},
		Transcript: []TranscriptLine{
			{Speaker: "1", StartSeconds: 0, Text: "大家好，欢迎收听。"},
			{Speaker: "2", StartSeconds: 12, Text: "今天聊分布式。"},
		},
	}
}

func TestRenderIncludesAllSections(t *testing.T) {
	doc := Render(sampleDraft())

	for _, want := range []string{
		"# 深入聊聊分布式系统",
		"- 播客：技术脱口秀",
		"- 时长：1:30:00",
		"- 关键词：分布式、一致性",
		"## 总览",
		"## 核心要点",
		"1. 共识协议的成本常被低估",
		"## 章节",
		"| 00:00 | 开场 | 嘉宾介绍 |",
		"## 分段笔记",
		"### 共识协议（00:00 - 12:00）",
		"> 工程上 Raft 赢在可解释性。",
		"- Raft 易于实现",
		"## 完整文稿",
		"**[00:00] 说话人 1**：大家好，欢迎收听。",
		"**[00:12] 说话人 2**：今天聊分布式。",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("rendered note missing %q:\n%s", want, doc)
		}
	}
}

func TestRenderEscapesTableCells(t *testing.T) {
	doc := Render(sampleDraft())
	if !strings.Contains(doc, "CAP \\| 再思考") {
		t.Fatalf("pipe in chapter title not escaped:\n%s", doc)
	}
}

func TestRenderDegradedNotice(t *testing.T) {
	draft := sampleDraft()
	draft.Degraded = true
	doc := Render(draft)
	if !strings.Contains(doc, "生成失败") {
		t.Fatalf("degraded note missing warning:\n%s", doc)
	}
}

func TestRenderEmptyTitleFallback(t *testing.T) {
	draft := &Draft{Title: "   "}
	doc := Render(draft)
	if !strings.Contains(doc, "# Untitled Episode") {
		t.Fatalf("missing fallback title:\n%s", doc)
	}
}

func TestRenderSegmentWithoutTopicGetsNumberedHeading(t *testing.T) {
	draft := &Draft{
		Title:    "test",
		Segments: []Segment{{Index: 2, StartSeconds: 1440, EndSeconds: 2160}},
	}
	doc := Render(draft)
	if !strings.Contains(doc, "### 第 3 段（24:00 - 36:00）") {
		t.Fatalf("missing numbered segment heading:\n%s", doc)
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{65, "01:05"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{5400, "1:30:00"},
		{-5, "00:00"},
	}
	for _, tc := range cases {
		if got := formatClock(tc.seconds); got != tc.want {
			t.Fatalf("formatClock(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
