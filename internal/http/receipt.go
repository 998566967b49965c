package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/repository"
)

// pdfResponse sends the download headers on the first write, so a receipt
// that fails before any output can still be answered with JSON.
type pdfResponse struct {
	c        *gin.Context
	filename string
	started  bool
}

func (p *pdfResponse) Write(b []byte) (int, error) {
	if !p.started {
		p.started = true
		p.c.Header("Content-Type", "application/pdf")
		p.c.Header("Content-Disposition", "attachment; filename="+p.filename)
		p.c.Status(http.StatusOK)
	}
	return p.c.Writer.Write(b)
}

// @Summary Download order receipt
// @Tags orders
// @Produce application/pdf
// @Param id path string true "Order ID"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /orders/{id}/receipt [get]
func (s *Server) getReceipt(c *gin.Context) {
	doc, err := s.receipts.Prepare(c, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	out := &pdfResponse{c: c, filename: doc.FileName()}
	if err := s.receipts.Draw(out, doc); err != nil {
		if !out.started {
			s.fail(c, err)
			return
		}
		// headers are gone; the client sees a truncated download
		_ = c.Error(err)
		c.Abort()
	}
}
