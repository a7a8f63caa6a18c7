package api

import (
	"prdchat/app/model"
	"prdchat/app/service/chat"
	"prdchat/app/service/prd"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type handler struct {
	chats *chat.Service
}

type createChatRequest struct {
	Name string `json:"name" validate:"max=512"`
}

type renameChatRequest struct {
	NewName string `json:"new_name" validate:"required,max=512"`
}

type postMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type chatDetails struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Messages       []model.Message `json:"messages"`
	LastResponseID *string         `json:"last_response_id"`
}

type documentResponse struct {
	Markdown string `json:"markdown"`
}

// parseBody decodes and validates an optional JSON body into dst.
func parseBody(c *fiber.Ctx, dst any) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(dst); err != nil {
			return oops.
				In("api").
				Code("invalid_argument").
				Wrapf(model.ErrInvalidArgument, "invalid request body: %v", err)
		}
	}

	if err := validate.Struct(dst); err != nil {
		return oops.
			In("api").
			Code("invalid_argument").
			Wrapf(model.ErrInvalidArgument, "%v", err)
	}

	return nil
}

func (h *handler) createChat(c *fiber.Ctx) error {
	var req createChatRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := h.chats.Create(c.UserContext(), req.Name)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(model.Summary{
		ID:   session.ID,
		Name: session.Name,
	})
}

func (h *handler) listChats(c *fiber.Ctx) error {
	list, err := h.chats.List(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(list)
}

func (h *handler) getChat(c *fiber.Ctx) error {
	session, err := h.chats.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	details := chatDetails{
		ID:       session.ID,
		Name:     session.Name,
		Messages: session.Messages,
	}
	if details.Messages == nil {
		details.Messages = []model.Message{}
	}
	if session.LastResponseID != "" {
		details.LastResponseID = &session.LastResponseID
	}

	return c.JSON(details)
}

func (h *handler) renameChat(c *fiber.Ctx) error {
	var req renameChatRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := h.chats.Rename(c.UserContext(), c.Params("id"), req.NewName); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) postMessage(c *fiber.Ctx) error {
	var req postMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	reply, err := h.chats.PostMessage(c.UserContext(), c.Params("id"), req.Content)
	if err != nil {
		return err
	}

	return c.JSON(model.Message{
		Role:    model.RoleAssistant,
		Content: reply,
	})
}

func (h *handler) getDocument(c *fiber.Ctx) error {
	markdown, err := h.chats.GetDocument(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(documentResponse{Markdown: markdown})
}

func (h *handler) getDocumentHTML(c *fiber.Ctx) error {
	markdown, err := h.chats.GetDocument(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	html, err := prd.RenderHTML(markdown)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(html)
}

func (h *handler) deleteChat(c *fiber.Ctx) error {
	if err := h.chats.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
