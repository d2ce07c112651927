package messaging

// DemoThreads returns the threads shown to the demo identity.
func DemoThreads() []Conversation {
	return []Conversation{
		{
			ID:            "m1",
			Correspondent: "TechHub Abidjan",
			Messages: []Message{
				{ID: "1", Text: "Bonjour Kwame, votre profil nous intéresse pour une mission Fintech.", Sender: SenderOther, Timestamp: "10:30"},
			},
			LastActivity: "10:30",
			Unread:       true,
			Avatar:       "https://ui-avatars.com/api/?name=Tech+Hub&background=F59E0B&color=fff",
		},
		{
			ID:            "m2",
			Correspondent: "Startup Lagos",
			Messages: []Message{
				{ID: "1", Text: "Le contrat a été validé.", Sender: SenderOther, Timestamp: "Hier"},
			},
			LastActivity: "Hier",
			Avatar:       "https://ui-avatars.com/api/?name=Startup+Lagos&background=006B3D&color=fff",
		},
	}
}
