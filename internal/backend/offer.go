package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/scoring"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// JobOffer is a job posting. Weight keys match what the matching service expects.
type JobOffer struct {
	Title             string            `json:"jobTitle" mapstructure:"title" validate:"required"`
	Location          string            `json:"location" mapstructure:"location" validate:"required"`
	Positions         int               `json:"positions" mapstructure:"positions" validate:"gt=0"`
	YearsOfExperience int               `json:"yearsOfExperience" mapstructure:"years-of-experience" validate:"gte=0"`
	Education         string            `json:"education" mapstructure:"education"`
	Requirements      []string          `json:"requirements" mapstructure:"requirements" validate:"dive,required"`
	ExperienceDetails []string          `json:"experienceDetails" mapstructure:"experience-details" validate:"dive,required"`
	Skills            []string          `json:"skills" mapstructure:"skills" validate:"min=1,dive,required"`
	Languages         []string          `json:"languages" mapstructure:"languages" validate:"dive,required"`
	Weights           OfferWeights      `json:"weights" mapstructure:"weights"`
	CVFiles           []EncodedDocument `json:"cvFiles" mapstructure:"-"`
}

type OfferWeights struct {
	Experience     int `json:"experience" mapstructure:"experience" validate:"gte=0,lte=100"`
	JobDescription int `json:"jobDescription" mapstructure:"job-description" validate:"gte=0,lte=100"`
	Education      int `json:"education" mapstructure:"education" validate:"gte=0,lte=100"`
	Skills         int `json:"skills" mapstructure:"skills" validate:"gte=0,lte=100"`
}

// WeightSet maps offer weights onto the section names used in rankings.
func (w OfferWeights) WeightSet() scoring.WeightSet {
	return scoring.WeightSet{
		"Work Experience": float64(w.Experience),
		"Mission":         float64(w.JobDescription),
		"Education":       float64(w.Education),
		"Skills":          float64(w.Skills),
	}
}

// Validate checks required fields and that weights total 100.
func (o *JobOffer) Validate() error {
	if err := validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid job offer: field %s failed %q check", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}

	return o.Weights.WeightSet().Validate()
}

var ErrJobOfferNotFound = errors.New("job offer not found")

// StoredJobOffer is an offer as kept by the matching service. CVFiles holds the
// stored file names; list responses drop them and set HasCVs instead.
type StoredJobOffer struct {
	JobOffer
	ID        string   `json:"id"`
	CreatedAt string   `json:"createdAt"`
	HasCVs    bool     `json:"hasCVs"`
	CVFiles   []string `json:"cvFiles"`
}

type offerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		JobID string `json:"jobId"`
	} `json:"data"`
}

type offerListResponse struct {
	Success   bool             `json:"success"`
	JobOffers []StoredJobOffer `json:"jobOffers"`
}

type offerItemResponse struct {
	Success  bool            `json:"success"`
	JobOffer *StoredJobOffer `json:"jobOffer"`
}

// CreateJobOffer validates and submits the offer with its attached résumés.
// It returns the id assigned by the matching service.
func (c *Client) CreateJobOffer(ctx context.Context, offer *JobOffer, docs []Document) (string, error) {
	if offer == nil {
		return "", errors.New("job offer is nil")
	}
	if err := offer.Validate(); err != nil {
		return "", err
	}

	payload := *offer
	payload.CVFiles = []EncodedDocument{}
	if len(docs) > 0 {
		encoded, err := EncodeDocuments(ctx, docs)
		if err != nil {
			return "", fmt.Errorf("encode cv files: %w", err)
		}
		payload.CVFiles = encoded
	}

	var response offerResponse
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint(jobOffersPath), payload, &response); err != nil {
		return "", fmt.Errorf("create job offer: %w", err)
	}

	if !response.Success {
		if response.Message == "" {
			response.Message = "rejected by the matching service"
		}
		return "", fmt.Errorf("create job offer: %s", response.Message)
	}

	c.logger.Info("job offer created",
		zap.String("title", offer.Title),
		zap.String("id", response.Data.JobID),
		zap.Int("cv_files", len(payload.CVFiles)),
	)

	return response.Data.JobID, nil
}

// ListJobOffers returns the stored offers, newest first.
func (c *Client) ListJobOffers(ctx context.Context) ([]StoredJobOffer, error) {
	var response offerListResponse
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint(jobOffersPath), nil, &response); err != nil {
		return nil, fmt.Errorf("list job offers: %w", err)
	}
	return response.JobOffers, nil
}

func (c *Client) GetJobOffer(ctx context.Context, id string) (*StoredJobOffer, error) {
	var response offerItemResponse
	if err := c.doJSON(ctx, http.MethodGet, c.offerEndpoint(id), nil, &response); err != nil {
		return nil, offerError("get", id, err)
	}
	if response.JobOffer == nil {
		return nil, fmt.Errorf("get job offer %s: %w", id, ErrJobOfferNotFound)
	}
	return response.JobOffer, nil
}

// DeleteJobOffer removes the offer and the résumés stored with it.
func (c *Client) DeleteJobOffer(ctx context.Context, id string) error {
	var response offerResponse
	if err := c.doJSON(ctx, http.MethodDelete, c.offerEndpoint(id), nil, &response); err != nil {
		return offerError("delete", id, err)
	}

	c.logger.Info("job offer deleted", zap.String("id", id))
	return nil
}

func (c *Client) offerEndpoint(id string) string {
	return c.endpoint(jobOffersPath + "/" + url.PathEscape(id))
}

// offerError marks a 404 as ErrJobOfferNotFound and keeps the *StatusError reachable.
func offerError(op, id string, err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s job offer %s: %w: %w", op, id, ErrJobOfferNotFound, err)
	}
	return fmt.Errorf("%s job offer %s: %w", op, id, err)
}
