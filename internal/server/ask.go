package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// askPromptTemplate frames retrieved snippets for a direct knowledge-base
// question. An empty context block tells the model to say so instead of
// guessing.
const askPromptTemplate = `Here you have some context in order to respond the question. If "Context:" is empty, it means there is no relevant context, and you should mention it to the user.

Context:
%s

--- END OF CONTEXT ---

Question: %s

Answer:`

// handleAsk answers a question against the indexed knowledge base.
func (s *Server) handleAsk(c *gin.Context) {
	question := c.Query("question")
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}
	if s.retriever == nil || s.answerer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "knowledge base is not enabled"})
		return
	}

	snippets, err := s.retriever.Retrieve(c.Request.Context(), question, s.askK)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var sb strings.Builder
	for _, snippet := range snippets {
		sb.WriteString(snippet.Content)
		sb.WriteString("\n\n")
	}

	prompt := fmt.Sprintf(askPromptTemplate, sb.String(), question)
	answer, err := s.answerer.Complete(c.Request.Context(), "", prompt)
	if err != nil {
		s.logger.Warn("ask completion failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer, "matches": len(snippets)})
}
