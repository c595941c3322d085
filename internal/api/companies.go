package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/availhq/avail/internal/models"
	"github.com/availhq/avail/internal/repository"
	"github.com/availhq/avail/internal/utils"
	"github.com/google/uuid"
)

// CompanyHandler handles HTTP requests for company management
type CompanyHandler struct {
	repo repository.Repository
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(repo repository.Repository) *CompanyHandler {
	return &CompanyHandler{repo: repo}
}

// ServeHTTP routes company requests.
// Path format: /api/companies/{companyID}
func (h *CompanyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	var companyID string
	if len(pathParts) >= 3 {
		companyID = pathParts[2]
	}

	switch {
	case r.Method == http.MethodGet && companyID == "":
		h.listCompanies(w, r)
	case r.Method == http.MethodPost && companyID == "":
		h.createCompany(w, r)
	case r.Method == http.MethodGet:
		h.getCompany(w, r, companyID)
	default:
		http.NotFound(w, r)
	}
}

// listCompanies handles GET /api/companies
func (h *CompanyHandler) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.repo.ListCompanies(r.Context())
	if err != nil {
		log.Printf("Error listing companies: %v", err)
		writeError(w, http.StatusInternalServerError, "Error retrieving companies")
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

// createCompany handles POST /api/companies
func (h *CompanyHandler) createCompany(w http.ResponseWriter, r *http.Request) {
	var company models.Company
	if err := json.NewDecoder(r.Body).Decode(&company); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	if company.Name == "" {
		writeError(w, http.StatusBadRequest, "Company name is required")
		return
	}
	if company.ID == "" {
		company.ID = uuid.NewString()
	}

	if err := h.repo.SaveCompany(r.Context(), &company); err != nil {
		log.Printf("Error saving company: %v", err)
		writeError(w, http.StatusInternalServerError, "Error saving company")
		return
	}
	writeJSON(w, http.StatusCreated, company)
}

// getCompany handles GET /api/companies/{companyID}
func (h *CompanyHandler) getCompany(w http.ResponseWriter, r *http.Request, companyID string) {
	company, err := h.repo.GetCompany(r.Context(), companyID)
	if err != nil {
		log.Printf("Error getting company %s: %v", utils.SanitizeLogString(companyID), err)
		writeRepoError(w, err, "Company not found")
		return
	}
	writeJSON(w, http.StatusOK, company)
}
