package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/linklet/linklet/httperr"
	"github.com/linklet/linklet/middleware"
	"github.com/linklet/linklet/models"
	"github.com/linklet/linklet/utils"
)

const maxMessageContentLen = 1000

// MessageController handles direct messages. Conversations are not stored
// anywhere; they are derived from the messages table on read.
type MessageController struct {
	db *gorm.DB
}

// NewMessageController creates a MessageController.
func NewMessageController(db *gorm.DB) *MessageController {
	return &MessageController{db: db}
}

// SendMessage delivers a direct message to an existing user other than the
// sender.
func (m *MessageController) SendMessage(ctx *gin.Context) {
	var req struct {
		ReceiverID uint   `json:"receiver_id"`
		Content    string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, httperr.BadRequest("invalid request payload"))
		return
	}

	senderID := ctx.GetUint(middleware.ContextUserIDKey)
	if req.ReceiverID == senderID {
		utils.Fail(ctx, httperr.BadRequest("cannot message yourself"))
		return
	}

	content := strings.TrimSpace(utils.Sanitize(req.Content))
	if content == "" {
		utils.Fail(ctx, httperr.BadRequest("content is required"))
		return
	}
	if len([]rune(content)) > maxMessageContentLen {
		utils.Fail(ctx, httperr.BadRequest("content must be at most 1000 characters"))
		return
	}

	var receiver models.User
	if err := m.db.First(&receiver, req.ReceiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, httperr.NotFound("receiver not found"))
			return
		}
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	message := models.Message{
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		Content:    content,
	}
	if err := m.db.Create(&message).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}
	if err := m.db.Preload("Sender").First(&message, message.ID).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	utils.Created(ctx, gin.H{"message": message})
}

// conversationView is one derived conversation: the counterpart, the
// latest message exchanged with them and how many of their messages are
// still unread.
type conversationView struct {
	User        map[string]interface{} `json:"user"`
	LastMessage models.Message         `json:"last_message"`
	UnreadCount int64                  `json:"unread_count"`
}

// ListConversations groups the caller's messages by counterpart and
// returns one entry per counterpart, newest activity first.
func (m *MessageController) ListConversations(ctx *gin.Context) {
	userID := ctx.GetUint(middleware.ContextUserIDKey)

	// Latest message id per counterpart, both directions folded together.
	var lastIDs []uint
	if err := m.db.Raw(
		`SELECT MAX(id) FROM messages
		 WHERE sender_id = ? OR receiver_id = ?
		 GROUP BY CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END`,
		userID, userID, userID).Scan(&lastIDs).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	var lastMessages []models.Message
	if len(lastIDs) > 0 {
		if err := m.db.Preload("Sender").
			Where("id IN ?", lastIDs).
			Order("id DESC").
			Find(&lastMessages).Error; err != nil {
			utils.Fail(ctx, httperr.Internal(err))
			return
		}
	}

	conversations := make([]conversationView, 0, len(lastMessages))
	for _, msg := range lastMessages {
		counterpartID := msg.SenderID
		if counterpartID == userID {
			counterpartID = msg.ReceiverID
		}

		var counterpart models.User
		if err := m.db.First(&counterpart, counterpartID).Error; err != nil {
			utils.Fail(ctx, httperr.Internal(err))
			return
		}

		var unread int64
		if err := m.db.Model(&models.Message{}).
			Where("sender_id = ? AND receiver_id = ? AND `read` = ?", counterpartID, userID, false).
			Count(&unread).Error; err != nil {
			utils.Fail(ctx, httperr.Internal(err))
			return
		}

		conversations = append(conversations, conversationView{
			User:        counterpart.Public(),
			LastMessage: msg,
			UnreadCount: unread,
		})
	}

	utils.OK(ctx, gin.H{"conversations": conversations})
}

// GetConversation returns the message history with one user, newest first,
// and marks that user's messages to the caller as read.
func (m *MessageController) GetConversation(ctx *gin.Context) {
	otherID64, err := strconv.ParseUint(ctx.Param("userId"), 10, 64)
	if err != nil {
		utils.Fail(ctx, httperr.BadRequest("invalid user id"))
		return
	}
	otherID := uint(otherID64)
	userID := ctx.GetUint(middleware.ContextUserIDKey)

	var other models.User
	if err := m.db.First(&other, otherID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, httperr.NotFound("user not found"))
			return
		}
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	limit, offset := pageParams(ctx)
	var messages []models.Message
	if err := m.db.Preload("Sender").
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherID, otherID, userID).
		Order("id DESC").Limit(limit).Offset(offset).
		Find(&messages).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	// Opening the conversation consumes the unread state.
	if err := m.db.Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND `read` = ?", otherID, userID, false).
		Update("read", true).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	utils.OK(ctx, gin.H{
		"user":     other.Public(),
		"messages": messages,
		"limit":    limit,
		"offset":   offset,
	})
}
