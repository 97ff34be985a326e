// controllers/voice.go
package controllers

import (
	"net/http"
	"strconv"

	"estetica-voice-backend/services"
	"estetica-voice-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"
)

// VoiceController bridges Twilio's voice webhooks and the call flow: it
// decodes gather callbacks into turn inputs and renders flow directives back
// into TwiML.
type VoiceController struct {
	flow *services.CallFlow
}

func NewVoiceController(flow *services.CallFlow) *VoiceController {
	return &VoiceController{flow: flow}
}

// Incoming answers a new (or redirected) call with the welcome prompt.
func (vc *VoiceController) Incoming(c *gin.Context) {
	in := turnInputFromRequest(c)
	if in.CallSid == "" {
		renderVerbs(c, http.StatusBadRequest,
			sayES("No se recibió identificador de llamada."),
			&twiml.VoiceHangup{},
		)
		return
	}

	directive, err := vc.flow.StartCall(in)
	if err != nil {
		vc.renderError(c, err)
		return
	}
	vc.renderDirective(c, directive)
}

// Turn handles every gather callback after the welcome.
func (vc *VoiceController) Turn(c *gin.Context) {
	in := turnInputFromRequest(c)
	if in.CallSid == "" {
		renderVerbs(c, http.StatusBadRequest,
			sayES("No se recibió identificador de llamada."),
			&twiml.VoiceHangup{},
		)
		return
	}

	directive, err := vc.flow.HandleTurn(c.Request.Context(), in)
	if err != nil {
		vc.renderError(c, err)
		return
	}
	vc.renderDirective(c, directive)
}

// Status receives call status callbacks and clears the session of calls that
// ended without booking.
func (vc *VoiceController) Status(c *gin.Context) {
	callSid := c.PostForm("CallSid")
	status := c.PostForm("CallStatus")

	switch status {
	case "completed", "failed", "busy", "no-answer", "canceled":
		if err := vc.flow.EndCall(callSid); err != nil {
			utils.GetLogger().Warn("failed to end call session",
				zap.String("call_sid", callSid),
				zap.Error(err),
			)
		}
	}
	c.Status(http.StatusOK)
}

func turnInputFromRequest(c *gin.Context) services.TurnInput {
	confidence, _ := strconv.ParseFloat(c.PostForm("Confidence"), 64)
	return services.TurnInput{
		CallSid:      c.PostForm("CallSid"),
		Digits:       c.PostForm("Digits"),
		SpeechText:   c.PostForm("SpeechResult"),
		Confidence:   confidence,
		CallerNumber: c.PostForm("From"),
	}
}

func (vc *VoiceController) renderDirective(c *gin.Context, d *services.Directive) {
	var verbs []twiml.Element

	switch d.Action {
	case services.ActionGather:
		// Informational lines play before the gather; the final line is the
		// actual prompt the caller answers.
		lines := d.PromptLines
		prompt := lines[len(lines)-1]
		for _, line := range lines[:len(lines)-1] {
			verbs = append(verbs, sayES(line))
		}
		gather := &twiml.VoiceGather{
			Input:         "speech dtmf",
			Action:        "/voice/turn",
			Method:        "POST",
			Timeout:       "5",
			SpeechTimeout: "auto",
			Language:      "es-ES",
			Hints:         d.Hints,
			InnerElements: []twiml.Element{sayES(prompt)},
		}
		verbs = append(verbs, gather)
		// Silence falls through here and comes back as an empty turn.
		verbs = append(verbs,
			sayES("No se detectó su respuesta. Intentando de nuevo."),
			&twiml.VoiceRedirect{Url: "/voice/turn", Method: "POST"},
		)

	case services.ActionHangup:
		for _, line := range d.PromptLines {
			verbs = append(verbs, sayES(line))
		}
		verbs = append(verbs, &twiml.VoiceHangup{})

	case services.ActionRedirect:
		for _, line := range d.PromptLines {
			verbs = append(verbs, sayES(line))
		}
		verbs = append(verbs, &twiml.VoiceRedirect{Url: "/voice/incoming", Method: "POST"})
	}

	renderVerbs(c, http.StatusOK, verbs...)
}

func (vc *VoiceController) renderError(c *gin.Context, err error) {
	utils.GetLogger().Error("voice turn failed", zap.Error(err))
	renderVerbs(c, http.StatusOK,
		sayES("Ha ocurrido un error. Por favor intente nuevamente."),
		&twiml.VoiceRedirect{Url: "/voice/incoming", Method: "POST"},
	)
}

func renderVerbs(c *gin.Context, status int, verbs ...twiml.Element) {
	xml, err := twiml.Voice(verbs)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Header("Content-Type", "text/xml")
	c.String(status, xml)
}

func sayES(message string) *twiml.VoiceSay {
	return &twiml.VoiceSay{
		Message:  message,
		Language: "es-ES",
		Voice:    "Polly.Lucia",
	}
}
