package feedback

import "github.com/go-chi/chi/v5"

// Routes registers the feedback endpoints on a panel router.
func Routes(r chi.Router) {
	r.Get("/resources/{id}/comments", ListCommentsHandler)
	r.Post("/resources/{id}/comments", AddCommentHandler)
	r.Put("/resources/{id}/comments/{comment}", EditCommentHandler)
	r.Delete("/resources/{id}/comments/{comment}", DeleteCommentHandler)

	r.Get("/resources/{id}/reactions", ReactionsHandler)
	r.Post("/resources/{id}/reactions", ReactHandler)

	r.Post("/resources/{id}/reports", ReportHandler)
	r.Delete("/reports/{id}", WithdrawReportHandler)
}
