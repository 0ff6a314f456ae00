// Package domain contains core domain types for the FinanceGURU advisor.
package domain

import (
	"time"
)

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Source identifies which path produced a bot message. User messages
// carry no source.
type Source string

const (
	// SourceRemoteAI indicates a response from the remote advisor service.
	SourceRemoteAI Source = "backend_ai"
	// SourceRemoteDemo indicates a remote response produced in demo mode.
	SourceRemoteDemo Source = "backend_demo"
	// SourceLocalFallback indicates a response from the local rule engine.
	SourceLocalFallback Source = "offline"
)

// Message is a single conversation turn. Messages are immutable once
// created; history ordering is append order.
type Message struct {
	Sender     Sender    `json:"sender"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Source     Source    `json:"source,omitempty"`
	MarketData bool      `json:"market_data,omitempty"`
	Sentiment  string    `json:"sentiment,omitempty"`
}

// NewUserMessage creates a user message stamped with the current time.
func NewUserMessage(text string) Message {
	return Message{
		Sender:    SenderUser,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewBotMessage creates a bot message stamped with the current time.
func NewBotMessage(text string, source Source) Message {
	return Message{
		Sender:    SenderBot,
		Text:      text,
		Timestamp: time.Now(),
		Source:    source,
	}
}
