package faq

// Entry pairs a canned question with its canned answer.
type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Seed provides the default FAQ table used when no external file is configured.
func Seed() []Entry {
	return []Entry{
		{
			Question: "What is your refund policy?",
			Answer:   "You can request a full refund within 30 days of purchase. Refunds are processed back to the original payment method within 5-7 business days.",
		},
		{
			Question: "How do I reset my password?",
			Answer:   "Open the login page, click \"Forgot password\", and follow the link we email you. The link expires after 24 hours.",
		},
		{
			Question: "What are your support hours?",
			Answer:   "Our support team is available Monday through Friday, 9:00 to 18:00 UTC. Outside those hours you can leave a message and we will reply on the next business day.",
		},
		{
			Question: "How do I contact customer support?",
			Answer:   "You can reach customer support by email at support@example.com or through the contact form on our website.",
		},
		{
			Question: "Do you offer a free trial?",
			Answer:   "Yes, every new account starts with a 14-day free trial. No credit card is required to begin.",
		},
		{
			Question: "How do I cancel my subscription?",
			Answer:   "Go to Account Settings, open the Billing tab, and click \"Cancel subscription\". Your plan stays active until the end of the current billing period.",
		},
	}
}
