package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"goblog/forms"
	"goblog/models"
	"goblog/utils"
)

// CategoryController manages CRUD operations for categories. Any
// authenticated user may manage categories; there is no per-category owner.
type CategoryController struct {
	db *gorm.DB
}

// NewCategoryController creates a new CategoryController instance.
func NewCategoryController(db *gorm.DB) *CategoryController {
	return &CategoryController{db: db}
}

// ListCategories returns all categories ordered by name.
func (c *CategoryController) ListCategories(ctx *gin.Context) {
	categories := make([]models.Category, 0)
	if err := c.db.Order("name ASC").Find(&categories).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to list categories")
		return
	}
	utils.Success(ctx, gin.H{"items": categories})
}

// GetCategory returns a single category.
func (c *CategoryController) GetCategory(ctx *gin.Context) {
	category, ok := c.loadCategory(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, gin.H{"category": category})
}

// CreateCategory adds a new category with a unique name.
func (c *CategoryController) CreateCategory(ctx *gin.Context) {
	name, ok := c.bindName(ctx)
	if !ok {
		return
	}

	category := models.Category{Name: name}
	if err := c.db.Create(&category).Error; err != nil {
		if dupErrs, ok := forms.DuplicateKey(err, "name", "a category with this name already exists"); ok {
			utils.ValidationError(ctx, 40051, dupErrs)
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to create category")
		return
	}

	utils.Created(ctx, gin.H{"category": category})
}

// UpdateCategory renames a category, keeping names unique.
func (c *CategoryController) UpdateCategory(ctx *gin.Context) {
	category, ok := c.loadCategory(ctx)
	if !ok {
		return
	}
	name, ok := c.bindName(ctx)
	if !ok {
		return
	}

	if err := c.db.Model(category).Update("name", name).Error; err != nil {
		if dupErrs, ok := forms.DuplicateKey(err, "name", "a category with this name already exists"); ok {
			utils.ValidationError(ctx, 40051, dupErrs)
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to update category")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")

	utils.Success(ctx, gin.H{"category": category})
}

// DeleteCategory removes a category and cascades to its posts, their
// comments and their likes inside one transaction.
func (c *CategoryController) DeleteCategory(ctx *gin.Context) {
	category, ok := c.loadCategory(ctx)
	if !ok {
		return
	}

	if err := c.db.Delete(category).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to delete category")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")

	utils.Success(ctx, gin.H{"message": "category deleted"})
}

func (c *CategoryController) loadCategory(ctx *gin.Context) (*models.Category, bool) {
	id := parseID(ctx.Param("id"))
	var category models.Category
	if err := c.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40450, "category not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to load category")
		return nil, false
	}
	return &category, true
}

func (c *CategoryController) bindName(ctx *gin.Context) (string, bool) {
	var req struct {
		Name string `json:"name"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return "", false
	}
	name := utils.Sanitize(strings.TrimSpace(req.Name))
	if name == "" {
		errs := forms.Errors{}
		errs.Add("name", "name is required")
		utils.ValidationError(ctx, 40051, errs)
		return "", false
	}
	return name, true
}
