package writer

import (
	"fmt"
	"strings"
)

// SystemPrompt frames every plan request.
const SystemPrompt = "你是一个专业的中文科技作者和编辑。请基于给定视频逐字稿，产出一篇可发布的中文 Markdown 文章规划。只输出 JSON。"

const planSchema = `{
  "title": "文章标题",
  "lead": "导语（1-2段）",
  "sections": [
    {
      "heading": "小节标题",
      "body_markdown": "小节正文（Markdown）",
      "image": {
        "need": true,
        "timestamp": "HH:MM:SS",
        "caption": "图片说明",
        "alt": "图片ALT",
        "anchor": "正文中的连续文本"
      }
    }
  ],
  "conclusion": "结语",
  "tags": ["标签1", "标签2"]
}`

// Request is one plan request.
type Request struct {
	// Transcript is the "[HH:MM:SS] text" rendering of the source video.
	Transcript  string
	Instruction string
	TargetWords int
	// MaxImages caps the images the model may ask for; 0 leaves it open.
	MaxImages int
}

// BuildPrompt renders the user prompt for req.
func BuildPrompt(req Request) string {
	target := req.TargetWords
	if target <= 0 {
		target = 3500
	}
	imageRule := "配图数量不固定，按内容需要决定，只在真正需要视觉辅助的段落配图。"
	if req.MaxImages > 0 {
		imageRule = fmt.Sprintf("配图总数不能超过 %d 张。", req.MaxImages)
	}
	instruction := strings.TrimSpace(req.Instruction)
	if instruction == "" {
		instruction = "写一篇结构清晰的技术解读文章。"
	}

	var sb strings.Builder
	sb.WriteString("任务要求：\n")
	sb.WriteString("1. 按用户要求写作，风格自然、结构清晰。\n")
	fmt.Fprintf(&sb, "2. 全文目标字数约 %d 字（允许上下浮动 10%%）。\n", target)
	fmt.Fprintf(&sb, "3. 自动判断哪些段落适合配图。%s\n", imageRule)
	sb.WriteString("4. 每张图必须给出视频时间戳（timestamp），用于后续自动截图。\n")
	sb.WriteString("5. image.anchor 必须是 body_markdown 中原样出现的一段连续文本，长度 8-40 字符，用于插图锚点。\n")
	sb.WriteString("6. 只输出 JSON，不要输出额外解释。\n\n")
	sb.WriteString("JSON 格式：\n")
	sb.WriteString(planSchema)
	sb.WriteString("\n\n用户写作要求：\n")
	sb.WriteString(instruction)
	sb.WriteString("\n\n视频逐字稿（带时间戳）：\n")
	sb.WriteString(strings.TrimSpace(req.Transcript))
	return sb.String()
}
