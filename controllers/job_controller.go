package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/linklet/linklet/httperr"
	"github.com/linklet/linklet/middleware"
	"github.com/linklet/linklet/models"
	"github.com/linklet/linklet/utils"
)

// JobController handles job listings and their filtered browse view.
type JobController struct {
	db *gorm.DB
}

// NewJobController creates a JobController.
func NewJobController(db *gorm.DB) *JobController {
	return &JobController{db: db}
}

// CreateJob publishes a job listing owned by the caller.
func (j *JobController) CreateJob(ctx *gin.Context) {
	var req struct {
		Title            string `json:"title"`
		Company          string `json:"company"`
		Location         string `json:"location"`
		Category         string `json:"category"`
		Commitment       string `json:"commitment"`
		Experience       string `json:"experience"`
		Education        string `json:"education"`
		CompensationMin  int    `json:"compensation_min"`
		CompensationMax  int    `json:"compensation_max"`
		Description      string `json:"description"`
		Responsibilities string `json:"responsibilities"`
		Skills           string `json:"skills"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, httperr.BadRequest("invalid request payload"))
		return
	}

	title := strings.TrimSpace(req.Title)
	company := strings.TrimSpace(req.Company)
	if title == "" || company == "" {
		utils.Fail(ctx, httperr.BadRequest("title and company are required"))
		return
	}
	if req.CompensationMin < 0 || req.CompensationMax < 0 ||
		(req.CompensationMax > 0 && req.CompensationMax < req.CompensationMin) {
		utils.Fail(ctx, httperr.BadRequest("invalid compensation range"))
		return
	}

	job := models.JobListing{
		UserID:           ctx.GetUint(middleware.ContextUserIDKey),
		Title:            title,
		Company:          company,
		Location:         strings.TrimSpace(req.Location),
		Category:         strings.TrimSpace(req.Category),
		Commitment:       strings.TrimSpace(req.Commitment),
		Experience:       strings.TrimSpace(req.Experience),
		Education:        strings.TrimSpace(req.Education),
		CompensationMin:  req.CompensationMin,
		CompensationMax:  req.CompensationMax,
		Description:      utils.Sanitize(req.Description),
		Responsibilities: utils.Sanitize(req.Responsibilities),
		Skills:           utils.Sanitize(req.Skills),
	}
	if err := j.db.Create(&job).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}
	if err := j.db.Preload("User").First(&job, job.ID).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	utils.Created(ctx, gin.H{"job": job})
}

// ListJobs returns listings matching the ANDed query filters. Sort is
// newest (default) or compensation (highest max first).
func (j *JobController) ListJobs(ctx *gin.Context) {
	query := j.db.Model(&models.JobListing{}).Preload("User")

	for param, column := range map[string]string{
		"category":   "category",
		"commitment": "commitment",
		"experience": "experience",
		"education":  "education",
	} {
		if v := strings.TrimSpace(ctx.Query(param)); v != "" {
			query = query.Where(column+" = ?", v)
		}
	}
	if v := ctx.Query("minCompensation"); v != "" {
		floor, err := strconv.Atoi(v)
		if err != nil || floor < 0 {
			utils.Fail(ctx, httperr.BadRequest("invalid minCompensation"))
			return
		}
		query = query.Where("compensation_max >= ?", floor)
	}

	switch ctx.DefaultQuery("sort", "newest") {
	case "newest":
		query = query.Order("id DESC")
	case "compensation":
		query = query.Order("compensation_max DESC, id DESC")
	default:
		utils.Fail(ctx, httperr.BadRequest("sort must be newest or compensation"))
		return
	}

	limit, offset := pageParams(ctx)
	var jobs []models.JobListing
	if err := query.Limit(limit).Offset(offset).Find(&jobs).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	utils.OK(ctx, gin.H{"jobs": jobs, "limit": limit, "offset": offset})
}
