// services/call_flow.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"estetica-voice-backend/models"
	"estetica-voice-backend/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type NextAction string

const (
	// ActionGather plays the prompts and waits for more caller input.
	ActionGather NextAction = "gather"
	// ActionHangup plays the prompts and ends the call.
	ActionHangup NextAction = "hangup"
	// ActionRedirect plays the prompts and restarts the flow at the step in
	// RedirectStep.
	ActionRedirect NextAction = "redirect"
)

// Directive is what the state machine hands back per turn; the voice
// controller renders it into provider markup.
type Directive struct {
	PromptLines  []string
	Action       NextAction
	Hints        string
	RedirectStep string
}

// CallFlow drives the booking dialogue. Each inbound turn loads the caller's
// session, interprets the raw input for the session's step, applies exactly
// one state change and produces the next directive.
type CallFlow struct {
	db           *gorm.DB
	availability *AvailabilityService
	booking      *BookingService
	assistant    Assistant
	notifier     Notifier
	logger       *zap.Logger
}

func NewCallFlow(db *gorm.DB, availability *AvailabilityService, booking *BookingService, assistant Assistant, notifier Notifier) *CallFlow {
	return &CallFlow{
		db:           db,
		availability: availability,
		booking:      booking,
		assistant:    assistant,
		notifier:     notifier,
		logger:       utils.GetLogger(),
	}
}

// StartCall gets or creates the session for an inbound call and produces the
// welcome directive. Safe to replay for the same CallSid.
func (f *CallFlow) StartCall(in TurnInput) (*Directive, error) {
	var session models.CallSession
	err := f.db.Where(models.CallSession{CallSid: in.CallSid}).
		Attrs(models.CallSession{CustomerPhone: in.CallerNumber, Step: models.StepWelcome}).
		FirstOrCreate(&session).Error
	if err != nil {
		return nil, err
	}

	session.Step = models.StepSelectingFamily
	if err := f.db.Save(&session).Error; err != nil {
		return nil, err
	}

	f.logger.Info("incoming call",
		zap.String("call_sid", in.CallSid),
		zap.String("caller", in.CallerNumber),
	)

	return &Directive{
		PromptLines: append([]string{welcomeLine}, familyMenuLines()...),
		Action:      ActionGather,
		Hints:       familyHints,
	}, nil
}

// HandleTurn processes one gather callback for an in-progress call.
func (f *CallFlow) HandleTurn(ctx context.Context, in TurnInput) (*Directive, error) {
	var session models.CallSession
	if err := f.db.Where("call_sid = ?", in.CallSid).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return f.restartDirective("Lo sentimos, hemos perdido el hilo de su llamada. Empecemos de nuevo."), nil
		}
		return nil, err
	}

	var products []models.Product
	if session.Step == models.StepSelectingProduct && session.Family != nil {
		var err error
		products, err = models.ActiveProductsByFamily(f.db, *session.Family)
		if err != nil {
			return f.restartDirective(internalErrorLine), nil
		}
	}

	token := InterpretTurn(session.Step, in, products)
	session.RecordTurn(rawInput(in), tokenName(token), in.Confidence)

	f.logger.Info("turn",
		zap.String("call_sid", in.CallSid),
		zap.String("step", session.Step),
		zap.String("input", rawInput(in)),
		zap.String("resolved", tokenName(token)),
		zap.Float64("confidence", in.Confidence),
	)

	var (
		directive *Directive
		deleted   bool
		err       error
	)
	switch session.Step {
	case models.StepWelcome, models.StepSelectingFamily:
		directive, deleted, err = f.familyStep(ctx, &session, in, token)
	case models.StepSelectingProduct:
		directive, deleted, err = f.productStep(&session, token, products)
	case models.StepRequestingDate:
		directive, deleted, err = f.dateStep(&session, token)
	case models.StepRequestingTime:
		directive, deleted, err = f.timeStep(&session, token)
	default:
		directive = f.restartDirective("Lo sentimos, su llamada ya no está activa. Empecemos de nuevo.")
	}
	if err != nil {
		return nil, err
	}

	if !deleted {
		if err := f.db.Save(&session).Error; err != nil {
			return nil, err
		}
	}
	return directive, nil
}

// EndCall drops the session of a call that hung up without booking.
func (f *CallFlow) EndCall(callSid string) error {
	return f.db.Where("call_sid = ?", callSid).Delete(&models.CallSession{}).Error
}

func (f *CallFlow) familyStep(ctx context.Context, session *models.CallSession, in TurnInput, token Token) (*Directive, bool, error) {
	switch tok := token.(type) {
	case NavigationCommand:
		return f.familyMenu(welcomeLine), false, nil

	case FamilyChoice:
		products, err := models.ActiveProductsByFamily(f.db, tok.Family)
		if err != nil {
			return nil, false, err
		}
		if len(products) == 0 {
			if err := f.db.Delete(session).Error; err != nil {
				return nil, false, err
			}
			return &Directive{
				PromptLines: []string{"No hay servicios disponibles en esta familia."},
				Action:      ActionHangup,
			}, true, nil
		}

		family := tok.Family
		session.Family = &family
		session.Step = models.StepSelectingProduct
		f.logger.Info("family selected", zap.String("call_sid", session.CallSid), zap.String("family", family))
		return f.productMenu(products), false, nil

	case FreeformIntent:
		switch tok.Intent {
		case IntentInfo, IntentGreeting:
			if answer := f.askAssistant(ctx, session, in.SpeechText); answer != "" {
				d := f.familyMenu(answer)
				return d, false, nil
			}
			return f.familyMenu("Con gusto le ayudo a elegir."), false, nil
		case IntentSchedule:
			return f.familyMenu("Perfecto, agendemos su cita."), false, nil
		default:
			return f.familyMenu(clarifyLine), false, nil
		}

	default:
		return f.familyMenu(clarifyLine), false, nil
	}
}

func (f *CallFlow) productStep(session *models.CallSession, token Token, products []models.Product) (*Directive, bool, error) {
	if len(products) == 0 {
		return f.restartDirective(internalErrorLine), false, nil
	}

	switch tok := token.(type) {
	case NavigationCommand:
		if tok.Action == NavBack {
			session.Family = nil
			session.Step = models.StepSelectingFamily
			return f.familyMenu(welcomeLine), false, nil
		}
		return f.productMenu(products), false, nil

	case ProductChoice:
		product := products[tok.Index]
		session.ProductID = &product.ID
		session.Step = models.StepRequestingDate
		f.logger.Info("product selected",
			zap.String("call_sid", session.CallSid),
			zap.String("product", product.Code),
		)
		lines := append([]string{fmt.Sprintf("Ha elegido %s.", product.Name)}, datePromptLines()...)
		return &Directive{PromptLines: lines, Action: ActionGather, Hints: dateHints}, false, nil

	default:
		d := f.productMenu(products)
		d.PromptLines = append([]string{clarifyLine}, d.PromptLines...)
		return d, false, nil
	}
}

func (f *CallFlow) dateStep(session *models.CallSession, token Token) (*Directive, bool, error) {
	product, err := f.sessionProduct(session)
	if err != nil {
		return f.restartDirective(internalErrorLine), false, nil
	}

	switch tok := token.(type) {
	case NextAvailable:
		return f.bookNextAvailable(session, product)

	case DateValue:
		if utils.IsWeekend(tok.Date) {
			return &Directive{
				PromptLines: []string{
					"La fecha seleccionada cae en fin de semana. No trabajamos sábados ni domingos.",
					"Por favor diga otra fecha.",
				},
				Action: ActionGather,
				Hints:  dateHints,
			}, false, nil
		}

		day := utils.BeginningOfDay(tok.Date)
		session.RequestedDate = &day
		session.Step = models.StepRequestingTime
		f.logger.Info("date selected",
			zap.String("call_sid", session.CallSid),
			zap.String("date", day.Format("2006-01-02")),
		)
		lines := append(
			[]string{fmt.Sprintf("Fecha: %s.", spanishDate(day))},
			timePromptLines()...,
		)
		return &Directive{PromptLines: lines, Action: ActionGather}, false, nil

	case NavigationCommand:
		if tok.Action == NavBack {
			session.Step = models.StepSelectingProduct
			products, err := models.ActiveProductsByFamily(f.db, derefFamily(session))
			if err != nil || len(products) == 0 {
				return f.restartDirective(internalErrorLine), false, nil
			}
			return f.productMenu(products), false, nil
		}
		return &Directive{PromptLines: datePromptLines(), Action: ActionGather, Hints: dateHints}, false, nil

	default:
		lines := append([]string{"No entendí la fecha. Por favor intente nuevamente."}, datePromptLines()...)
		return &Directive{PromptLines: lines, Action: ActionGather, Hints: dateHints}, false, nil
	}
}

func (f *CallFlow) timeStep(session *models.CallSession, token Token) (*Directive, bool, error) {
	product, err := f.sessionProduct(session)
	if err != nil || session.RequestedDate == nil {
		return f.restartDirective(internalErrorLine), false, nil
	}
	date := *session.RequestedDate

	switch tok := token.(type) {
	case TimeValue:
		if tok.Hour < WorkStartHour || tok.Hour >= WorkEndHour {
			return &Directive{
				PromptLines: []string{
					"Lo sentimos, nuestro horario es de 9 de la mañana a 7 de la tarde.",
					"Por favor elija una hora dentro del horario laboral.",
				},
				Action: ActionGather,
			}, false, nil
		}

		start := time.Date(date.Year(), date.Month(), date.Day(), tok.Hour, tok.Minute, 0, 0, date.Location())
		slot := models.NewTimeRange(start, product.DurationMinutes)

		appointment, err := f.booking.Commit(slot, product.ID, session.CustomerPhone)
		switch {
		case err == nil:
			return f.finishBooking(session, appointment, product)

		case errors.Is(err, ErrSlotTaken):
			return f.offerAlternatives(session, product, date)

		default:
			f.logger.Error("commit failed",
				zap.String("call_sid", session.CallSid),
				zap.Error(err),
			)
			session.Step = models.StepWelcome
			return f.restartDirective(internalErrorLine), false, nil
		}

	case NavigationCommand:
		if tok.Action == NavBack {
			session.Step = models.StepRequestingDate
			session.RequestedDate = nil
			return &Directive{PromptLines: datePromptLines(), Action: ActionGather, Hints: dateHints}, false, nil
		}
		return &Directive{PromptLines: timePromptLines(), Action: ActionGather}, false, nil

	default:
		lines := append([]string{"No entendí la hora o es inválida. Por favor intente nuevamente."}, timePromptLines()...)
		return &Directive{PromptLines: lines, Action: ActionGather}, false, nil
	}
}

// bookNextAvailable books the earliest free slot within the horizon. Losing
// the slot to a concurrent commit retries the search a few times before
// giving up on this turn.
func (f *CallFlow) bookNextAvailable(session *models.CallSession, product *models.Product) (*Directive, bool, error) {
	from := time.Now()
	for attempt := 0; attempt < 3; attempt++ {
		slot, err := f.availability.FindNextAvailableSlot(from, product.DurationMinutes)
		if err != nil {
			return nil, false, err
		}
		if slot == nil {
			if err := f.db.Delete(session).Error; err != nil {
				return nil, false, err
			}
			return &Directive{
				PromptLines: []string{
					fmt.Sprintf("Lo sentimos, no hay disponibilidad en los próximos %d días.", SearchHorizonDays),
					"Por favor contacte con nosotros directamente.",
				},
				Action: ActionHangup,
			}, true, nil
		}

		appointment, err := f.booking.Commit(*slot, product.ID, session.CustomerPhone)
		if err == nil {
			return f.finishBooking(session, appointment, product)
		}
		if errors.Is(err, ErrSlotTaken) {
			from = slot.Start.Add(SlotIntervalMinutes * time.Minute)
			continue
		}
		session.Step = models.StepWelcome
		return f.restartDirective(internalErrorLine), false, nil
	}

	lines := append([]string{"Ese horario acaba de ocuparse. Por favor indique una fecha."}, datePromptLines()...)
	return &Directive{PromptLines: lines, Action: ActionGather, Hints: dateHints}, false, nil
}

func (f *CallFlow) finishBooking(session *models.CallSession, appointment *models.Appointment, product *models.Product) (*Directive, bool, error) {
	if err := f.db.Delete(session).Error; err != nil {
		return nil, false, err
	}

	f.logger.Info("appointment created",
		zap.String("call_sid", session.CallSid),
		zap.String("appointment_id", appointment.ID.String()),
		zap.Time("starts_at", appointment.StartsAt),
	)

	if f.notifier != nil {
		go f.notifier.SendBookingConfirmation(appointment, product)
	}

	return &Directive{
		PromptLines: []string{
			fmt.Sprintf("Perfecto. Su cita ha sido confirmada para el %s.", spanishDateTime(appointment.StartsAt)),
			fmt.Sprintf("El servicio es %s, con una duración de %d minutos.", product.Name, product.DurationMinutes),
			"Recibirá una confirmación por SMS. Gracias por confiar en Contemporánea Estética.",
		},
		Action: ActionHangup,
	}, true, nil
}

func (f *CallFlow) offerAlternatives(session *models.CallSession, product *models.Product, date time.Time) (*Directive, bool, error) {
	slots, err := f.availability.GetAvailableSlots(date, product.DurationMinutes)
	if err != nil {
		return nil, false, err
	}

	if len(slots) == 0 {
		session.Step = models.StepRequestingDate
		session.RequestedDate = nil
		lines := append(
			[]string{"Lo sentimos, ese horario no está disponible.", "No hay disponibilidad para ese día. Por favor intente otra fecha."},
			datePromptLines()...,
		)
		return &Directive{PromptLines: lines, Action: ActionGather, Hints: dateHints}, false, nil
	}

	lines := []string{
		"Lo sentimos, ese horario no está disponible.",
		"Horarios disponibles para ese día:",
	}
	for i, slot := range slots {
		if i == 3 {
			break
		}
		lines = append(lines, slot.Start.Format("15:04"))
	}
	lines = append(lines, "Por favor elija otro horario.")
	return &Directive{PromptLines: lines, Action: ActionGather}, false, nil
}

func (f *CallFlow) askAssistant(ctx context.Context, session *models.CallSession, userText string) string {
	if f.assistant == nil || userText == "" {
		return ""
	}

	summary := map[string]string{"paso actual": session.Step}
	if session.Family != nil {
		summary["familia"] = *session.Family
	}
	if session.RequestedDate != nil {
		summary["fecha solicitada"] = session.RequestedDate.Format("2006-01-02")
	}
	if product, err := f.sessionProduct(session); err == nil {
		summary["producto"] = product.Name
	}

	answer, err := f.assistant.RespondToQuestion(ctx, userText, summary)
	if err != nil {
		// No answer in time and no answer at all read the same to the caller.
		return ""
	}
	return answer
}

func (f *CallFlow) sessionProduct(session *models.CallSession) (*models.Product, error) {
	if session.ProductID == nil {
		return nil, gorm.ErrRecordNotFound
	}
	var product models.Product
	if err := f.db.First(&product, "id = ?", *session.ProductID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (f *CallFlow) familyMenu(intro string) *Directive {
	return &Directive{
		PromptLines: append([]string{intro}, familyMenuLines()...),
		Action:      ActionGather,
		Hints:       familyHints,
	}
}

func (f *CallFlow) productMenu(products []models.Product) *Directive {
	lines := []string{"Servicios disponibles:"}
	hints := ""
	for i, p := range products {
		lines = append(lines, fmt.Sprintf(
			"%d. %s, duración %d minutos, precio %.2f euros.",
			i+1, p.Name, p.DurationMinutes, float64(p.PriceCents)/100,
		))
		if hints != "" {
			hints += ", "
		}
		hints += p.Name
	}
	lines = append(lines, "Diga el nombre del servicio o presione el número correspondiente. O diga volver para regresar.")
	return &Directive{PromptLines: lines, Action: ActionGather, Hints: hints + ", volver"}
}

func (f *CallFlow) restartDirective(lines ...string) *Directive {
	return &Directive{
		PromptLines:  lines,
		Action:       ActionRedirect,
		RedirectStep: models.StepWelcome,
	}
}

const (
	welcomeLine       = "Bienvenido a Contemporánea Estética."
	clarifyLine       = "No entendí su selección. Por favor intente de nuevo."
	internalErrorLine = "Ha ocurrido un error al procesar su cita. Por favor intente nuevamente o contacte con nosotros."
	familyHints       = "facial, faciales, manos, repetir, 1, 2, 0"
	dateHints         = "próximo disponible, hoy, mañana, 9"
)

func familyMenuLines() []string {
	return []string{"Diga facial o manos para elegir, o presione los números 1 y 2."}
}

func datePromptLines() []string {
	return []string{
		"Para agendar su cita, indique la fecha deseada.",
		"Puede decir la fecha, por ejemplo 20 de diciembre, o marcar los dígitos del día y el mes.",
		"O presione 9 para el próximo día disponible.",
	}
}

func timePromptLines() []string {
	return []string{
		"Ahora dígame la hora deseada o marque 4 dígitos en formato 24 horas.",
		"Por ejemplo, puede decir las 3 y media de la tarde, o marcar 1, 5, 3, 0 para las 15:30.",
	}
}

var spanishMonthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

func spanishDate(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), spanishMonthNames[t.Month()-1], t.Year())
}

func spanishDateTime(t time.Time) string {
	return fmt.Sprintf("%d de %s a las %s", t.Day(), spanishMonthNames[t.Month()-1], t.Format("15:04"))
}

func rawInput(in TurnInput) string {
	if in.Digits != "" {
		return "dtmf:" + in.Digits
	}
	return in.SpeechText
}

func tokenName(t Token) string {
	switch v := t.(type) {
	case FamilyChoice:
		return "family:" + v.Family
	case ProductChoice:
		return fmt.Sprintf("product:%d", v.Index+1)
	case DateValue:
		return "date:" + v.Date.Format("2006-01-02")
	case TimeValue:
		return fmt.Sprintf("time:%02d:%02d", v.Hour, v.Minute)
	case NavigationCommand:
		return "nav:" + v.Action
	case NextAvailable:
		return "next_available"
	case FreeformIntent:
		return "intent:" + v.Intent
	default:
		return "unrecognized"
	}
}

func derefFamily(session *models.CallSession) string {
	if session.Family == nil {
		return ""
	}
	return *session.Family
}
