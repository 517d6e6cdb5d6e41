package routes

import (
	"net/http"

	"Gin_postgres_redis_library/app"
	"Gin_postgres_redis_library/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)

	// 复用的中间件
	authMW := app.AuthRequired(a.Tokens, a.AppSessions())
	optAuthMW := app.OptionalAuth(a.Tokens, a.AppSessions())
	adminMW := app.AdminOnly()
	throttleMW := app.LoginThrottle(a.AppSessions(), a.Config.LoginMaxAttempts, a.Config.LoginWindow)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })

	// ------------------------------
	// 用户（注册/登录公开，其余需登录）
	// ------------------------------
	users := r.Group("/users")
	{
		users.POST("/register", optAuthMW, s.Register) // role=admin 需管理员 token
		users.POST("/login", throttleMW, s.Login)
		users.POST("/logout", authMW, s.Logout)
	}
	usersAdmin := r.Group("/users", authMW, adminMW)
	{
		usersAdmin.GET("", s.ListUsers) // ?q=&page=&size=
		usersAdmin.GET("/:registration", s.GetUser)
		usersAdmin.DELETE("/:registration", s.DeleteUser)
		usersAdmin.PUT("/:registration/role", s.SetUserRole)
	}

	// ------------------------------
	// 图书
	// ------------------------------
	books := r.Group("/books", authMW)
	{
		books.GET("", s.ListBooks)
		books.GET("/:isbn", s.GetBook)
		books.POST("", adminMW, s.CreateBook)
		books.DELETE("/:isbn", adminMW, s.DeleteBook)
	}

	// ------------------------------
	// 借还（借出/归还仅管理员）
	// ------------------------------
	loans := r.Group("/loans", authMW)
	{
		loans.GET("", s.ListLoans) // ?status=open|returned&registration=&isbn=
		loans.GET("/users/:registration", s.ListLoansByUser)
		loans.GET("/:id", s.GetLoan)
		loans.POST("", adminMW, s.OpenLoan)
		loans.POST("/:id/return", adminMW, s.ReturnLoan)
	}

	// ------------------------------
	// 报表（只读）
	// ------------------------------
	reports := r.Group("/reports", authMW)
	{
		reports.GET("/books-most-loaned", s.MostLoanedBooks)
		reports.GET("/users-most-loaned", s.MostLoanedUsers)
		reports.GET("/overdue-books", s.OverdueBooks)
		reports.GET("/loans-history", s.LoansHistory)
	}
}
