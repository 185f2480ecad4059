package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/opsboard/internal/api/dto"
	"github.com/spec-kit/opsboard/internal/domain"
	"github.com/spec-kit/opsboard/internal/service"
)

// BoardHandler serves the shared board.
type BoardHandler struct {
	board *service.BoardService
}

// NewBoardHandler constructs handler.
func NewBoardHandler(boardService *service.BoardService) *BoardHandler {
	return &BoardHandler{board: boardService}
}

// Board GET /board.
func (h *BoardHandler) Board(c *fiber.Ctx) error {
	items, err := h.board.Board(c.UserContext())
	if err != nil {
		return err
	}
	if items == nil {
		items = []domain.RequestView{}
	}
	return c.JSON(fiber.Map{"requests": dto.NewRequestList(items)})
}
