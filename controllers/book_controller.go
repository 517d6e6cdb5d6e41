package controllers

import (
	"net/http"
	"strconv"

	"Gin_postgres_redis_library/app"
	"Gin_postgres_redis_library/db"
	"Gin_postgres_redis_library/models"

	"github.com/gin-gonic/gin"
)

type createBookReq struct {
	ISBN        string `json:"isbn" binding:"required,max=20"`
	Title       string `json:"title" binding:"required,max=255"`
	Authors     string `json:"authors" binding:"max=255"`
	Year        int    `json:"year" binding:"gte=0"`
	Category    string `json:"category" binding:"max=100"`
	Publisher   string `json:"publisher" binding:"max=100"`
	TotalCopies int    `json:"total_copies" binding:"gte=0"`
}

// POST /books
func (s *Srv) CreateBook(c *gin.Context) {
	var req createBookReq
	if !bindJSON(c, &req) {
		return
	}
	p, _ := app.PrincipalFrom(c)
	b := models.Book{
		ISBN:        req.ISBN,
		Title:       req.Title,
		Authors:     req.Authors,
		Year:        req.Year,
		Category:    req.Category,
		Publisher:   req.Publisher,
		TotalCopies: req.TotalCopies,
	}
	if err := s.Repo.CreateBook(c.Request.Context(), p, &b); err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"message": "book added", "isbn": b.ISBN})
}

// GET /books?title=&author=&category=&isbn=&available=true&q=
func (s *Srv) ListBooks(c *gin.Context) {
	f := db.BookFilter{
		Title:    c.Query("title"),
		Author:   c.Query("author"),
		Category: c.Query("category"),
		ISBN:     c.Query("isbn"),
		Q:        c.Query("q"),
	}
	if v := c.Query("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, app.H{"error": "available must be true or false"})
			return
		}
		f.Available = &b
	}
	books, err := s.Repo.ListBooks(c.Request.Context(), f)
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

// GET /books/:isbn
func (s *Srv) GetBook(c *gin.Context) {
	b, err := s.Repo.GetBook(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// DELETE /books/:isbn
func (s *Srv) DeleteBook(c *gin.Context) {
	p, _ := app.PrincipalFrom(c)
	if err := s.Repo.DeleteBook(c.Request.Context(), p, c.Param("isbn")); err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "book deleted"})
}
