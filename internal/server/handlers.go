package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrz1836/tether/internal/chains"
	"github.com/mrz1836/tether/internal/connection"
	tethererr "github.com/mrz1836/tether/pkg/errors"
)

type connectReq struct {
	Provider string `json:"provider" binding:"required"`
}

type switchChainReq struct {
	ChainID uint64 `json:"chainId" binding:"required"`
}

// POST /v1/connect
//
// Envelope failures (rejected, wallet error) are reported with 200 and the
// envelope body; only malformed requests get an error status.
func (s *Server) connect(c *gin.Context) {
	var req connectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(tethererr.Wrap(tethererr.ErrInvalidInput, "%v", err)))
		return
	}
	p, err := connection.ParseProvider(req.Provider)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, s.svc.Connect(c.Request.Context(), p))
}

// POST /v1/disconnect
func (s *Server) disconnect(c *gin.Context) {
	if err := s.svc.Disconnect(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, errorBody(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /v1/switch-chain
func (s *Server) switchChain(c *gin.Context) {
	var req switchChainReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(tethererr.Wrap(tethererr.ErrInvalidChainID, "%v", err)))
		return
	}
	if s.svc.Current() == nil {
		c.JSON(http.StatusConflict, errorBody(tethererr.ErrNotConnected))
		return
	}
	if !chains.IsKnown(req.ChainID) {
		s.log.Warn("switching to unlisted chain %d", req.ChainID)
	}
	c.JSON(http.StatusOK, s.svc.SwitchChain(c.Request.Context(), req.ChainID))
}

// GET /v1/state
func (s *Server) state(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Snapshot())
}

// GET /v1/chains
func (s *Server) chains(c *gin.Context) {
	c.JSON(http.StatusOK, chains.All())
}
