package vertexclient

import (
	"context"
	"log/slog"

	"cloud.google.com/go/vertexai/genai"

	"github.com/serviteq/fieldops-backend/internal/contract"
	"github.com/serviteq/fieldops-backend/internal/dto"
	"github.com/serviteq/fieldops-backend/internal/models"
	"github.com/serviteq/fieldops-backend/internal/services"
)

// Adapter exposes the Gemini model behind the conversation-loop interface.
// Two renditions share it: the stateful one leans on the SDK's chat session
// for the whole turn, the stateless one rebuilds the transcript on every call.
type Adapter struct {
	client    *genai.Client
	model     string
	stateless bool
	log       *slog.Logger
}

func NewAdapter(ctx context.Context, log *slog.Logger, projectID, region, model string, stateless bool) (*Adapter, error) {
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, err
	}

	return &Adapter{
		client:    client,
		model:     model,
		stateless: stateless,
		log:       log,
	}, nil
}

func (a *Adapter) Close() error {
	err := a.client.Close()
	if err != nil && a.log != nil {
		a.log.Error("vertex adapter close failed", "error", err)
	}
	return err
}

func (a *Adapter) StartConversation(system string, tools []dto.ToolSchema, history []models.ChatMessage) services.ModelConversation {
	model := a.client.GenerativeModel(a.model)
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}
	if len(tools) > 0 {
		model.Tools = toGenaiTools(tools)
	}
	model.GenerationConfig.ResponseMIMEType = "application/json"
	model.GenerationConfig.ResponseSchema = toGenaiSchema(contract.ResponseSchema())

	contents := historyToContents(history)
	if a.stateless {
		return &statelessConversation{model: model, history: contents}
	}

	session := model.StartChat()
	session.History = contents
	return &statefulConversation{session: session}
}

// statefulConversation delegates turn state to the SDK's chat session.
type statefulConversation struct {
	session *genai.ChatSession
}

func (c *statefulConversation) Send(ctx context.Context, userText string) (dto.ModelReply, error) {
	resp, err := c.session.SendMessage(ctx, genai.Text(userText))
	if err != nil {
		return dto.ModelReply{}, err
	}
	return parseReply(resp), nil
}

func (c *statefulConversation) SendToolResults(ctx context.Context, calls []dto.ToolCall, results []dto.ToolResponse) (dto.ModelReply, error) {
	resp, err := c.session.SendMessage(ctx, toolResponseParts(results)...)
	if err != nil {
		return dto.ModelReply{}, err
	}
	return parseReply(resp), nil
}

// statelessConversation reconstructs the full transcript on every call,
// replaying prior turns (tool round-trips included) as role-tagged contents.
type statelessConversation struct {
	model   *genai.GenerativeModel
	history []*genai.Content
}

func (c *statelessConversation) Send(ctx context.Context, userText string) (dto.ModelReply, error) {
	return c.generate(ctx, &genai.Content{
		Role:  "user",
		Parts: []genai.Part{genai.Text(userText)},
	})
}

func (c *statelessConversation) SendToolResults(ctx context.Context, calls []dto.ToolCall, results []dto.ToolResponse) (dto.ModelReply, error) {
	// The pending calls are replayed as a model turn before the responses so
	// the reconstructed transcript matches what a stateful session would hold.
	callParts := make([]genai.Part, 0, len(calls))
	for _, call := range calls {
		callParts = append(callParts, genai.FunctionCall{Name: call.Name, Args: call.Args})
	}
	c.history = append(c.history, &genai.Content{Role: "model", Parts: callParts})

	return c.generate(ctx, &genai.Content{
		Role:  "user",
		Parts: toolResponseParts(results),
	})
}

func (c *statelessConversation) generate(ctx context.Context, next *genai.Content) (dto.ModelReply, error) {
	session := c.model.StartChat()
	session.History = append([]*genai.Content{}, c.history...)

	resp, err := session.SendMessage(ctx, next.Parts...)
	if err != nil {
		return dto.ModelReply{}, err
	}

	c.history = append(c.history, next)
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		c.history = append(c.history, resp.Candidates[0].Content)
	}
	return parseReply(resp), nil
}

func toolResponseParts(results []dto.ToolResponse) []genai.Part {
	parts := make([]genai.Part, 0, len(results))
	for _, result := range results {
		parts = append(parts, genai.FunctionResponse{
			Name:     result.Name,
			Response: map[string]any{"content": result.Content},
		})
	}
	return parts
}

// historyToContents replays persisted session messages as model contents.
// Tool messages expand into the call/response pair the protocol expects.
func historyToContents(history []models.ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case "user":
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})

		case "assistant":
			if msg.Content != "" {
				contents = append(contents, &genai.Content{
					Role:  "model",
					Parts: []genai.Part{genai.Text(msg.Content)},
				})
			}

		case "tool":
			if msg.ToolName == "" {
				continue
			}
			contents = append(contents, &genai.Content{
				Role: "model",
				Parts: []genai.Part{genai.FunctionCall{
					Name: msg.ToolName,
					Args: msg.ToolArgs,
				}},
			})
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []genai.Part{genai.FunctionResponse{
					Name:     msg.ToolName,
					Response: map[string]any{"content": msg.ToolResult},
				}},
			})
		}
	}
	return contents
}

func parseReply(resp *genai.GenerateContentResponse) dto.ModelReply {
	var reply dto.ModelReply
	if resp == nil {
		return reply
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			switch p := part.(type) {
			case genai.Text:
				reply.Text += string(p)
			case genai.FunctionCall:
				reply.ToolCalls = append(reply.ToolCalls, dto.ToolCall{Name: p.Name, Args: p.Args})
			case *genai.FunctionCall:
				reply.ToolCalls = append(reply.ToolCalls, dto.ToolCall{Name: p.Name, Args: p.Args})
			}
		}
	}
	return reply
}

func toGenaiTools(tools []dto.ToolSchema) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  toGenaiSchema(tool.Parameters),
		})
	}

	return []*genai.Tool{
		{FunctionDeclarations: decls},
	}
}

func toGenaiSchema(schema *dto.Schema) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{
		Type:        toGenaiType(schema.Type),
		Description: schema.Description,
		Enum:        schema.Enum,
		Required:    schema.Required,
	}

	if schema.Items != nil {
		out.Items = toGenaiSchema(schema.Items)
	}
	if len(schema.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(schema.Properties))
		for key, value := range schema.Properties {
			out.Properties[key] = toGenaiSchema(value)
		}
	}

	return out
}

func toGenaiType(schemaType string) genai.Type {
	switch schemaType {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}
