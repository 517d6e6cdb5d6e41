package controllers

import (
	"net/http"

	"Gin_postgres_redis_library/app"

	"github.com/gin-gonic/gin"
)

// GET /reports/books-most-loaned
func (s *Srv) MostLoanedBooks(c *gin.Context) {
	rows, err := s.Reports.MostLoanedBooks(c.Request.Context())
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GET /reports/users-most-loaned
func (s *Srv) MostLoanedUsers(c *gin.Context) {
	rows, err := s.Reports.MostLoanedUsers(c.Request.Context())
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GET /reports/overdue-books
func (s *Srv) OverdueBooks(c *gin.Context) {
	rows, err := s.Reports.OverdueBooks(c.Request.Context())
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GET /reports/loans-history?start=2025-01-01&end=2025-12-31
func (s *Srv) LoansHistory(c *gin.Context) {
	rows, err := s.Reports.LoansHistory(c.Request.Context(), c.Query("start"), c.Query("end"))
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
