// controllers/loan_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"Gin_postgres_redis_library/app"
	"Gin_postgres_redis_library/db"
	"Gin_postgres_redis_library/models"

	"github.com/gin-gonic/gin"
)

type openLoanReq struct {
	ISBN         string `json:"isbn" binding:"required"`
	Registration string `json:"registration" binding:"required"`
	LoanDate     string `json:"loan_date" binding:"required,datetime=2006-01-02"`
	DueDate      string `json:"due_date" binding:"required,datetime=2006-01-02"`
}

// 借出
func (s *Srv) OpenLoan(c *gin.Context) {
	var req openLoanReq
	if !bindJSON(c, &req) {
		return
	}
	// binding 已校验过格式
	loanDate, _ := models.ParseDate(req.LoanDate)
	dueDate, _ := models.ParseDate(req.DueDate)

	p, _ := app.PrincipalFrom(c)
	id, err := s.Repo.OpenLoan(c.Request.Context(), p, db.OpenLoanInput{
		ISBN:         req.ISBN,
		Registration: req.Registration,
		LoanDate:     loanDate,
		DueDate:      dueDate,
	})
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"message": "loan registered", "id": id})
}

// 单条借阅
func (s *Srv) GetLoan(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid loan id"})
		return
	}
	loan, err := s.Repo.GetLoan(c.Request.Context(), id)
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// 归还
func (s *Srv) ReturnLoan(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid loan id"})
		return
	}
	p, _ := app.PrincipalFrom(c)
	res, err := s.Repo.ReturnLoan(c.Request.Context(), p, id)
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"message":     "return registered",
		"loan_id":     res.LoanID,
		"return_date": res.ReturnDate,
		"fine":        res.Fine,
	})
}

// 借还记录 ?status=open|returned&registration=&isbn=
func (s *Srv) ListLoans(c *gin.Context) {
	status := c.Query("status")
	if status != "" && status != string(models.LoanStatusOpen) && status != string(models.LoanStatusReturned) {
		c.JSON(http.StatusBadRequest, app.H{"error": "status must be open or returned"})
		return
	}
	loans, err := s.Repo.ListLoans(c.Request.Context(), db.LoanFilter{
		Status:       status,
		Registration: c.Query("registration"),
		ISBN:         c.Query("isbn"),
	})
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

// 某个用户的全部借阅
func (s *Srv) ListLoansByUser(c *gin.Context) {
	loans, err := s.Repo.ListLoansByUser(c.Request.Context(), c.Param("registration"))
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}
