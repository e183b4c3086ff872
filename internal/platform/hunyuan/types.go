package hunyuan

import (
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/domain"
)

// Fixed request values the web application sends
const (
	sceneTypePlayground = "playGround3D-2.0"
	modelTypeCreation   = "modelCreationV2.5"
	sceneTypeQuota      = "3dCreations"
)

type generationRequest struct {
	Prompt        string `json:"prompt"`
	Title         string `json:"title"`
	Style         string `json:"style"`
	SceneType     string `json:"sceneType"`
	ModelType     string `json:"modelType"`
	Count         int    `json:"count"`
	EnablePBR     bool   `json:"enable_pbr"`
	EnableLowPoly bool   `json:"enableLowPoly"`
}

type generationResponse struct {
	CreationsID string `json:"creationsId"`
}

type urlResult struct {
	GLB   string `json:"glb"`
	Image string `json:"image"`
	GIF   string `json:"gif"`
}

type intermediateOutput struct {
	Image string `json:"image"`
	GIF   string `json:"gif"`
}

type creationResult struct {
	AssetID            string             `json:"assetId"`
	Status             string             `json:"status"`
	URLResult          urlResult          `json:"urlResult"`
	IntermediateOutput intermediateOutput `json:"intermediateOutput"`
	CreatedAt          int64              `json:"createdAt"`
	UpdatedAt          int64              `json:"updatedAt"`
}

// CreationDetail is the detail payload of one creation
type CreationDetail struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	Prompt    string           `json:"prompt"`
	Title     string           `json:"title"`
	Style     string           `json:"style"`
	N         int              `json:"n"`
	WaitNum   int              `json:"waitNum"`
	WaitTime  int              `json:"waitTime"`
	Result    []creationResult `json:"result"`
	CreatedAt int64            `json:"createdAt"`
	UpdatedAt int64            `json:"updatedAt"`
}

// Results converts the remote result list to domain results. Results the
// remote has not produced any URL for yet are still included so the job
// keeps its variant order.
func (d *CreationDetail) Results() []domain.Result {
	out := make([]domain.Result, 0, len(d.Result))
	for _, r := range d.Result {
		if r.AssetID == "" {
			continue
		}
		res := domain.Result{AssetID: r.AssetID, ModelURL: r.URLResult.GLB}
		for _, p := range []domain.Preview{
			{Kind: domain.PreviewImage, URL: r.URLResult.Image},
			{Kind: domain.PreviewGIF, URL: r.URLResult.GIF},
			{Kind: domain.PreviewIntermediateImage, URL: r.IntermediateOutput.Image},
			{Kind: domain.PreviewIntermediateGIF, URL: r.IntermediateOutput.GIF},
		} {
			if p.URL != "" {
				res.Previews = append(res.Previews, p)
			}
		}
		out = append(out, res)
	}
	return out
}

type listRequest struct {
	Limit         int      `json:"limit"`
	Offset        int      `json:"offset"`
	SceneTypeList []string `json:"sceneTypeList"`
}

type quotaRequest struct {
	SceneType string `json:"sceneType"`
}

// QuotaInfo is the account's generation quota
type QuotaInfo struct {
	Date                    string `json:"date"`
	TotalQuota              int    `json:"totalQuota"`
	AlarmQuota              int    `json:"alarmQuota"`
	RemainQuota             int    `json:"remainQuota"`
	ConsumeQuota            int    `json:"consumeQuota"`
	UserInviteQuota         int    `json:"userInviteQuota"`
	ShowUserInviteQuotaTag  bool   `json:"showUserInviteQuotaTag"`
	PerUserInviteQuotaCount int    `json:"perUserInviteQuotaCount"`
	MaxUserInviteQuota      int    `json:"maxUserInviteQuota"`
}
