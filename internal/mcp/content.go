package mcp

type TextContent struct {
	text string
}

func NewTextContent(text string) Content {
	return &TextContent{text: text}
}

func (c *TextContent) Type() string {
	return "text"
}

func (c *TextContent) GetText() string {
	return c.text
}

type toolResult struct {
	content []Content
	error   error
	isError bool
}

func NewToolResult(content ...Content) ToolResult {
	return &toolResult{content: content, isError: false}
}

func NewToolResultText(text string) ToolResult {
	return &toolResult{content: []Content{NewTextContent(text)}, isError: false}
}

func NewToolError(err error) ToolResult {
	return &toolResult{error: err, isError: true}
}

func (r *toolResult) IsError() bool {
	return r.isError
}

func (r *toolResult) GetContent() []Content {
	return r.content
}

func (r *toolResult) GetError() error {
	return r.error
}
