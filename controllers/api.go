package controllers

import (
	"transfer-credit-api/config"
	"transfer-credit-api/services"
	"transfer-credit-api/storage"

	"gorm.io/gorm"
)

// API bundles every controller that carries dependencies beyond the
// global database handle. It is built once at startup and handed to the
// route setup.
type API struct {
	Submissions   *SubmissionController
	Syllabi       *SyllabusController
	Catalog       *CatalogController
	Evaluations   *EvaluationController
	Admin         *AdminController
	Notifications *NotificationController

	Pipeline *services.PipelineService
}

// NewAPI wires the service graph: document storage, text extraction,
// the course ranker and the services sitting on top of them.
func NewAPI(db *gorm.DB, store storage.FileStore, app config.App) *API {
	if db == nil {
		db = config.DB
	}

	ranker := services.NewCourseRanker(app)
	extractor := services.NewTextExtractor(store)
	matcher := services.NewMatchingService(db, ranker, app.TopNMatches)
	notifier := services.NewNotifier(db)
	pipeline := services.NewPipelineService(db, extractor, ranker, matcher, notifier)
	evaluations := services.NewEvaluationService(db, notifier)
	reports := services.NewReportService(db)
	importer := services.NewCatalogImportService(db)

	return &API{
		Submissions:   &SubmissionController{db: db, store: store, pipeline: pipeline, reports: reports, app: app},
		Syllabi:       &SyllabusController{db: db, store: store, pipeline: pipeline, app: app},
		Catalog:       &CatalogController{db: db, importer: importer, app: app},
		Evaluations:   &EvaluationController{db: db, evaluations: evaluations, reports: reports},
		Admin:         &AdminController{db: db, janitor: services.NewJanitor(db, app.StaleAfter)},
		Notifications: &NotificationController{db: db},
		Pipeline:      pipeline,
	}
}
