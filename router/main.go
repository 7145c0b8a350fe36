package router

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/config"
	"github.com/khagendra-rk/lms/database"
	"github.com/khagendra-rk/lms/handlers"
	admin_handlers "github.com/khagendra-rk/lms/handlers/admin"
	auth_handlers "github.com/khagendra-rk/lms/handlers/auth"
	book_handlers "github.com/khagendra-rk/lms/handlers/book"
	borrow_handlers "github.com/khagendra-rk/lms/handlers/borrow"
	faculty_handlers "github.com/khagendra-rk/lms/handlers/faculty"
	student_handlers "github.com/khagendra-rk/lms/handlers/student"
	teacher_handlers "github.com/khagendra-rk/lms/handlers/teacher"
	"github.com/khagendra-rk/lms/model"
	"github.com/khagendra-rk/lms/utils"
	"github.com/khagendra-rk/lms/utils/auth"
	"github.com/khagendra-rk/lms/utils/cache"
	"github.com/khagendra-rk/lms/utils/middleware"
)

// SetupRoutes mounts every endpoint on app. redisCache may be nil, in which
// case login brute force protection is disabled.
func SetupRoutes(app *fiber.App, store database.Storage, env *config.EnvironmentVariable, redisCache *cache.RedisCache) {
	if env.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        env.JWT_SECRET,
		Expiry:        time.Duration(env.JWT_EXPIRY_HOURS) * time.Hour,
		RefreshExpiry: time.Duration(env.JWT_REFRESH_EXPIRY_HOURS) * time.Hour,
		Issuer:        env.JWT_ISSUER,
	})

	db := store.GetDB()

	if redisCache == nil {
		log.Println("Warning: Redis unavailable. Brute force protection will be disabled.")
	}
	bruteForceProtection := middleware.NewBruteForceProtection(redisCache)

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)
	perms := middleware.NewPermissionMiddleware(auth.NewPermissionService(db))

	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection)
	bookHandler := book_handlers.NewBookHandler(db)
	borrowHandler := borrow_handlers.NewBorrowHandler(db)
	studentHandler := student_handlers.NewStudentHandler(db)
	teacherHandler := teacher_handlers.NewTeacherHandler(db)
	facultyHandler := faculty_handlers.NewFacultyHandler(db)

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    env.ALLOWED_ORIGINS,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Health check endpoint (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))

	api := app.Group("/api/v1")

	// Auth routes
	api.Post("/login", bruteForceProtection.CheckLock(), authHandler.Login)
	api.Post("/refresh", authHandler.RefreshToken)
	api.Get("/user", authMiddleware.Required(), authHandler.Me)
	api.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	api.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)

	// Catalog
	viewBooks := perms.Require(model.PermBooksView)
	manageBooks := perms.Require(model.PermBooksManage)
	manageIndices := perms.Require(model.PermIndicesManage)

	books := api.Group("/books", authMiddleware.Required(), middleware.AuditLog(db, "books"))
	books.Get("/", viewBooks, bookHandler.ListBooks)
	books.Post("/", manageBooks, bookHandler.CreateBook)
	books.Get("/:book", viewBooks, bookHandler.GetBook)
	books.Put("/:book", manageBooks, bookHandler.UpdateBook)
	books.Delete("/:book", manageBooks, bookHandler.DeleteBook)
	books.Put("/:book/faculties", manageBooks, bookHandler.SyncFaculties)

	books.Get("/:book/indices", viewBooks, bookHandler.ListIndices)
	books.Post("/:book/indices", manageIndices, bookHandler.AddIndex)
	books.Put("/:book/indices/:index", manageIndices, bookHandler.UpdateIndex)
	books.Delete("/:book/indices/:index", manageIndices, bookHandler.DeleteIndex)
	books.Post("/:book/rangeindices", manageIndices, bookHandler.RangeIndices)
	books.Post("/:book/listindices", manageIndices, bookHandler.ListIndicesAllocation)
	books.Post("/:book/quantityindices", manageIndices, bookHandler.QuantityIndices)

	// Circulation
	viewBorrows := perms.Require(model.PermBorrowsView)
	manageBorrows := perms.Require(model.PermBorrowsManage)

	borrows := api.Group("/borrows", authMiddleware.Required(), middleware.AuditLog(db, "borrows"))
	borrows.Get("/", viewBorrows, borrowHandler.ListBorrows)
	borrows.Post("/", manageBorrows, borrowHandler.IssueBorrow)
	borrows.Post("/return", manageBorrows, borrowHandler.ReturnByCode)
	borrows.Get("/:borrow", viewBorrows, borrowHandler.GetBorrow)
	borrows.Put("/:borrow", manageBorrows, borrowHandler.ReassignBorrow)
	borrows.Delete("/:borrow", manageBorrows, borrowHandler.DeleteBorrow)
	borrows.Post("/:borrow/return", manageBorrows, borrowHandler.ReturnBorrow)

	// Patrons
	students := api.Group("/students", authMiddleware.Required(), middleware.AuditLog(db, "students"), perms.Require(model.PermStudentsManage))
	students.Get("/", studentHandler.ListStudents)
	students.Post("/", studentHandler.CreateStudent)
	students.Get("/:student", studentHandler.GetStudent)
	students.Put("/:student", studentHandler.UpdateStudent)
	students.Delete("/:student", studentHandler.DeleteStudent)

	teachers := api.Group("/teachers", authMiddleware.Required(), middleware.AuditLog(db, "teachers"), perms.Require(model.PermTeachersManage))
	teachers.Get("/", teacherHandler.ListTeachers)
	teachers.Post("/", teacherHandler.CreateTeacher)
	teachers.Get("/:teacher", teacherHandler.GetTeacher)
	teachers.Put("/:teacher", teacherHandler.UpdateTeacher)
	teachers.Delete("/:teacher", teacherHandler.DeleteTeacher)

	faculties := api.Group("/faculties", authMiddleware.Required(), middleware.AuditLog(db, "faculties"), perms.Require(model.PermFacultiesManage))
	faculties.Get("/", facultyHandler.ListFaculties)
	faculties.Post("/", facultyHandler.CreateFaculty)
	faculties.Get("/:faculty", facultyHandler.GetFaculty)
	faculties.Put("/:faculty", facultyHandler.UpdateFaculty)
	faculties.Delete("/:faculty", facultyHandler.DeleteFaculty)

	// Access control
	users := api.Group("/users", authMiddleware.Required(), middleware.AuditLog(db, "users"), perms.Require(model.PermUsersManage))
	users.Get("/", utils.MakeHTTPHandleFunc(admin_handlers.ListUsers, store))
	users.Post("/", utils.MakeHTTPHandleFunc(admin_handlers.CreateUser, store))
	users.Get("/:user", utils.MakeHTTPHandleFunc(admin_handlers.GetUser, store))
	users.Put("/:user", utils.MakeHTTPHandleFunc(admin_handlers.UpdateUser, store))
	users.Delete("/:user", utils.MakeHTTPHandleFunc(admin_handlers.DeleteUser, store))

	roles := api.Group("/roles", authMiddleware.Required(), middleware.AuditLog(db, "roles"), perms.Require(model.PermRolesManage))
	roles.Get("/", utils.MakeHTTPHandleFunc(admin_handlers.ListRoles, store))
	roles.Post("/", utils.MakeHTTPHandleFunc(admin_handlers.CreateRole, store))
	roles.Get("/:role", utils.MakeHTTPHandleFunc(admin_handlers.GetRole, store))
	roles.Put("/:role", utils.MakeHTTPHandleFunc(admin_handlers.UpdateRole, store))
	roles.Delete("/:role", utils.MakeHTTPHandleFunc(admin_handlers.DeleteRole, store))

	permissions := api.Group("/permissions", authMiddleware.Required(), middleware.AuditLog(db, "permissions"), perms.Require(model.PermPermissionManage))
	permissions.Get("/", utils.MakeHTTPHandleFunc(admin_handlers.ListPermissions, store))
	permissions.Post("/", utils.MakeHTTPHandleFunc(admin_handlers.CreatePermission, store))
	permissions.Get("/:permission", utils.MakeHTTPHandleFunc(admin_handlers.GetPermission, store))
	permissions.Put("/:permission", utils.MakeHTTPHandleFunc(admin_handlers.UpdatePermission, store))
	permissions.Delete("/:permission", utils.MakeHTTPHandleFunc(admin_handlers.DeletePermission, store))

	auditLogs := api.Group("/audit-logs", authMiddleware.Required(), perms.Require(model.PermUsersManage))
	auditLogs.Get("/", utils.MakeHTTPHandleFunc(admin_handlers.ListAuditLogs, store))
	auditLogs.Get("/:log", utils.MakeHTTPHandleFunc(admin_handlers.GetAuditLog, store))
}
