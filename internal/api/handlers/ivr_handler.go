package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/labourline/internal/models"
	"github.com/yoockh/labourline/internal/providers/voice"
	"github.com/yoockh/labourline/internal/services"
)

const twimlContentType = "application/xml"

// fallbackTwiML is served when a directive cannot be rendered.
const fallbackTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response><Say>Sorry, something went wrong. Please call again.</Say><Hangup/></Response>`

// IVRHandler answers the voice provider's webhooks with TwiML.
type IVRHandler struct {
	flow     services.CallFlowService
	renderer *voice.Renderer
	log      *logrus.Logger
}

func NewIVRHandler(flow services.CallFlowService, renderer *voice.Renderer, log *logrus.Logger) *IVRHandler {
	return &IVRHandler{flow: flow, renderer: renderer, log: log}
}

// webhookForm holds the provider parameters the flow uses.
type webhookForm struct {
	CallSid      string `form:"CallSid"`
	From         string `form:"From"`
	Digits       string `form:"Digits"`
	RecordingURL string `form:"RecordingUrl"`
	RecordingSid string `form:"RecordingSid"`
	CallStatus   string `form:"CallStatus"`
	CallDuration string `form:"CallDuration"`
}

func (h *IVRHandler) bind(c *gin.Context) (webhookForm, bool) {
	var f webhookForm
	if err := c.ShouldBind(&f); err != nil || strings.TrimSpace(f.CallSid) == "" {
		h.log.WithError(err).WithField("path", c.FullPath()).Warn("webhook without call id")
		h.respond(c, voice.Directive{Kind: voice.KindExpired, Language: models.DefaultLanguage})
		return f, false
	}
	return f, true
}

func (h *IVRHandler) respond(c *gin.Context, d voice.Directive) {
	doc, err := h.renderer.Render(d)
	if err != nil {
		h.log.WithError(err).WithField("kind", d.Kind).Error("twiml render failed")
		doc = fallbackTwiML
	}
	c.Data(http.StatusOK, twimlContentType, []byte(doc))
}

func (h *IVRHandler) Welcome(c *gin.Context) {
	f, ok := h.bind(c)
	if !ok {
		return
	}
	h.respond(c, h.flow.Start(c.Request.Context(), f.CallSid, f.From))
}

func (h *IVRHandler) Language(c *gin.Context) {
	f, ok := h.bind(c)
	if !ok {
		return
	}
	h.respond(c, h.flow.SelectLanguage(c.Request.Context(), f.CallSid, f.Digits))
}

func (h *IVRHandler) Purpose(c *gin.Context) {
	f, ok := h.bind(c)
	if !ok {
		return
	}
	h.respond(c, h.flow.SelectPurpose(c.Request.Context(), f.CallSid, f.Digits))
}

func (h *IVRHandler) Record(c *gin.Context) {
	f, ok := h.bind(c)
	if !ok {
		return
	}
	h.respond(c, h.flow.RecordingCompleted(c.Request.Context(), f.CallSid, c.Param("field"), f.RecordingURL))
}

func (h *IVRHandler) RecordingStatus(c *gin.Context) {
	var f webhookForm
	_ = c.ShouldBind(&f)
	h.log.WithFields(logrus.Fields{
		"call_id":       f.CallSid,
		"recording_sid": f.RecordingSid,
	}).Debug("recording status")
	c.Status(http.StatusNoContent)
}

func (h *IVRHandler) Status(c *gin.Context) {
	var f webhookForm
	if err := c.ShouldBind(&f); err != nil || f.CallSid == "" {
		c.Status(http.StatusNoContent)
		return
	}
	if err := h.flow.CallEnded(c.Request.Context(), f.CallSid, f.CallStatus); err != nil {
		h.log.WithError(err).WithField("call_id", f.CallSid).Warn("call status handling failed")
	}
	c.Status(http.StatusNoContent)
}
