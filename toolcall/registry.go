package toolcall

import (
	models "github.com/Desarso/haochat/models"
)

// WebSearchTool returns the declaration for the web search tool.
func WebSearchTool() models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        models.ToolWebSearch,
		Description: "Search the web for current information. Use this for recent events, news, weather, prices, or anything that needs up-to-date data. Returns titles, links, and snippets.",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "The search query",
				},
			},
			Required: []string{"query"},
		},
	}
}

// ImageGenerationTool returns the declaration for the image generation tool.
func ImageGenerationTool() models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        models.ToolImageGeneration,
		Description: "Generate an image from a text description. Use this when the user asks to draw, create, or generate a picture, artwork, or illustration. The image is shown to the user separately; do not repeat its URL.",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"prompt": map[string]interface{}{
					"type":        "string",
					"description": "Detailed description of the image to generate",
				},
				"size": map[string]interface{}{
					"type":        "string",
					"description": "Image size",
					"enum":        []string{"1024x1024", "1792x1024", "1024x1792"},
				},
				"quality": map[string]interface{}{
					"type":        "string",
					"description": "Image quality",
					"enum":        []string{"standard", "hd"},
				},
			},
			Required: []string{"prompt"},
		},
	}
}

// SelectTools returns the tools offered on the buffered path. Image
// generation is always offered; web search only when enabled.
func SelectTools(webSearch bool) []models.FunctionDeclaration {
	tools := []models.FunctionDeclaration{ImageGenerationTool()}
	if webSearch {
		tools = append(tools, WebSearchTool())
	}
	return tools
}
