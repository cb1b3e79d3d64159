package notes

import (
	"fmt"
	"strings"
)

// Render produces the markdown document for a draft.
func Render(draft *Draft) string {
	var b strings.Builder

	title := strings.TrimSpace(draft.Title)
	if title == "" {
		title = "Untitled Episode"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	renderFrontMatter(&b, draft)

	if draft.Overview != "" {
		b.WriteString("## 总览\n\n")
		if draft.Degraded {
			b.WriteString("> 注意：本期 AI 总结部分生成失败，以下内容可能不完整。\n\n")
		}
		b.WriteString(strings.TrimSpace(draft.Overview))
		b.WriteString("\n\n")
	}

	if len(draft.Insights) > 0 {
		b.WriteString("## 核心要点\n\n")
		for i, insight := range draft.Insights {
			fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(insight))
		}
		b.WriteString("\n")
	}

	if len(draft.Chapters) > 0 {
		b.WriteString("## 章节\n\n")
		b.WriteString("| 时间 | 章节 | 概要 |\n")
		b.WriteString("| --- | --- | --- |\n")
		for _, chapter := range draft.Chapters {
			fmt.Fprintf(&b, "| %s | %s | %s |\n",
				formatClock(chapter.StartSeconds),
				escapeTableCell(chapter.Title),
				escapeTableCell(chapter.Summary))
		}
		b.WriteString("\n")
	}

	if len(draft.Segments) > 0 {
		b.WriteString("## 分段笔记\n\n")
		for _, segment := range draft.Segments {
			heading := strings.TrimSpace(segment.Topic)
			if heading == "" {
				heading = fmt.Sprintf("第 %d 段", segment.Index+1)
			}
			fmt.Fprintf(&b, "### %s（%s - %s）\n\n", heading,
				formatClock(segment.StartSeconds), formatClock(segment.EndSeconds))
			if summary := strings.TrimSpace(segment.Summary); summary != "" {
				b.WriteString(summary)
				b.WriteString("\n\n")
			}
			if len(segment.KeyPoints) > 0 {
				for _, point := range segment.KeyPoints {
					fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(point))
				}
				b.WriteString("\n")
			}
			for _, quote := range segment.Quotes {
				fmt.Fprintf(&b, "> %s\n\n", strings.TrimSpace(quote))
			}
		}
	}

	if len(draft.Transcript) > 0 {
		b.WriteString("## 完整文稿\n\n")
		for _, line := range draft.Transcript {
			speaker := strings.TrimSpace(line.Speaker)
			if speaker == "" {
				speaker = "?"
			}
			fmt.Fprintf(&b, "**[%s] 说话人 %s**：%s\n\n",
				formatClock(line.StartSeconds), speaker, strings.TrimSpace(line.Text))
		}
	}

	return b.String()
}

func renderFrontMatter(b *strings.Builder, draft *Draft) {
	var lines []string
	if podcast := strings.TrimSpace(draft.PodcastName); podcast != "" {
		lines = append(lines, "- 播客："+podcast)
	}
	if draft.DurationSeconds > 0 {
		lines = append(lines, "- 时长："+formatClock(draft.DurationSeconds))
	}
	if url := strings.TrimSpace(draft.SourceURL); url != "" {
		lines = append(lines, "- 链接："+url)
	}
	if !draft.ProcessedAt.IsZero() {
		lines = append(lines, "- 整理时间："+draft.ProcessedAt.Format("2006-01-02 15:04"))
	}
	if len(draft.Keywords) > 0 {
		lines = append(lines, "- 关键词："+strings.Join(draft.Keywords, "、"))
	}
	if len(lines) == 0 {
		return
	}
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")
}

func escapeTableCell(value string) string {
	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, "|", "\\|")
	return strings.ReplaceAll(value, "\n", " ")
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
