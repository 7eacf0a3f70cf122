package conversation

import "fmt"

const (
	greetingText         = "Hi! I'm the PipelogicAI assistant. I'll help turn your idea into a requirements brief and an estimate. Briefly describe your idea?"
	askNameText          = "Got it, interesting idea! Before we dive into the details, how should I address you?"
	firstQuestionFormat  = "%s, nice to meet you! Let's clarify the details for your project: %s"
	timelineIntroText    = "Thank you! I've analysed your request. Here are the implementation options and timelines:\n\n"
	askPhoneText         = "To get the budget estimate, please leave your phone number:"
	askEmailText         = "Got it! Now your contact email:"
	invalidEmailText     = "Please enter a valid email."
	budgetIntroText      = "Done! Here is the full estimate with budgets:\n\n"
	budgetUnavailable    = "We couldn't prepare the budget estimate right now. Our team will send it to you personally."
	askMeetingText       = "To discuss these options, please pick a time for an intro call:"
	invalidSlotText      = "Please pick one of the suggested times, or choose to pick a time later."
	bookedFormat         = "Great! %s is booked. We sent a confirmation to %s. Thank you!"
	skippedText          = "Understood. We'll contact you soon using the details you left. Thank you!"
	emptyInputText       = "Please type a reply so we can continue."
	askDescriptionText   = "Briefly describe your idea?"
	askNameAgainText     = "How should I address you?"
	askPhoneAgainText    = "Please leave your phone number:"
	alreadyCompletedText = "Your request has already been sent to our team. Feel free to ask anything else."

	// SkipLabel is the caption of the "no meeting" control.
	SkipLabel = "Pick a time later"
)

func placeholderFor(st State) string {
	switch v := st.(type) {
	case Initial:
		return "Describe your idea..."
	case CollectingName:
		return "Your name..."
	case RunningQuiz:
		return "Choose options or type your answer..."
	case CollectingContacts:
		if v.Step == ContactEmail {
			return "Your email..."
		}
		return "Your phone..."
	case Scheduling:
		return "Pick a time..."
	default:
		return "Type here..."
	}
}

func bookedText(slot, email string) string {
	return fmt.Sprintf(bookedFormat, slot, email)
}
