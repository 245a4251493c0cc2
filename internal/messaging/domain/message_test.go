package domain

import "testing"

func TestMediaKindForFilename(t *testing.T) {
	t.Parallel()

	cases := []struct {
		filename string
		want     MediaKind
	}{
		{"brief.PNG", MediaKindImage},
		{"shoot.jpeg", MediaKindImage},
		{"teaser.mp4", MediaKindVideo},
		{"cut.MOV", MediaKindVideo},
		{"contract.pdf", MediaKindFile},
		{"noextension", MediaKindFile},
	}
	for _, tc := range cases {
		if got := MediaKindForFilename(tc.filename); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.filename, tc.want, got)
		}
	}
}

func TestKindForAttachments(t *testing.T) {
	t.Parallel()

	if got := KindForAttachments(nil); got != MessageKindText {
		t.Fatalf("expected text, got %s", got)
	}
	if got := KindForAttachments([]Attachment{{Filename: "a.png", Kind: MediaKindImage}}); got != MessageKindFile {
		t.Fatalf("expected file, got %s", got)
	}
}

func TestDisplayType(t *testing.T) {
	t.Parallel()

	image := []Attachment{{Filename: "a.png", Kind: MediaKindImage}}
	video := []Attachment{{Filename: "v.mp4", Kind: MediaKindVideo}}

	cases := []struct {
		name        string
		kind        MessageKind
		text        string
		attachments []Attachment
		want        string
	}{
		{name: "plain text", kind: MessageKindText, text: "hi", attachments: nil, want: "text"},
		{name: "empty text no attachment", kind: MessageKindText, text: "", attachments: nil, want: "text"},
		{name: "image only", kind: MessageKindFile, text: "", attachments: image, want: "image"},
		{name: "image with text", kind: MessageKindFile, text: "look", attachments: image, want: "image+text"},
		{name: "video only", kind: MessageKindFile, text: "", attachments: video, want: "video"},
		{name: "video with text", kind: MessageKindFile, text: "cut two", attachments: video, want: "video+text"},
		{name: "file with text", kind: MessageKindFile, text: "signed", attachments: []Attachment{{Kind: MediaKindFile}}, want: "file+text"},
		{name: "whitespace text does not count", kind: MessageKindFile, text: "  ", attachments: image, want: "image"},
		{name: "deleted is always text", kind: MessageKindDeleted, text: DeletedPlaceholder, attachments: image, want: "text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DisplayType(tc.kind, tc.text, tc.attachments); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestOrderPair(t *testing.T) {
	t.Parallel()

	a := Participant{ID: "alpha", Name: "A"}
	b := Participant{ID: "beta", Name: "B"}

	first, second := OrderPair(a, b)
	if first.ID != "alpha" || second.ID != "beta" {
		t.Fatalf("expected alpha/beta, got %s/%s", first.ID, second.ID)
	}

	first, second = OrderPair(b, a)
	if first.ID != "alpha" || second.ID != "beta" {
		t.Fatalf("expected swap to alpha/beta, got %s/%s", first.ID, second.ID)
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	if ParseRole(" Client ") != RoleClient {
		t.Fatal("expected client")
	}
	if ParseRole("collaborator") != RoleCollaborator {
		t.Fatal("expected collaborator")
	}
	if ParseRole("manager") != RoleUnknown {
		t.Fatal("expected unknown for unrecognized role")
	}
	if RoleAdmin.SyncsCampaigns() {
		t.Fatal("admins do not sync campaigns")
	}
	if !RoleCollaborator.SyncsCampaigns() {
		t.Fatal("collaborators sync campaigns")
	}
}

func TestSupportCampaignID(t *testing.T) {
	t.Parallel()

	key := SupportCampaignID("user-1")
	if key != "support-user-1" {
		t.Fatalf("unexpected support key %q", key)
	}
	if !IsSupportCampaignID(key) {
		t.Fatal("expected support key detection")
	}
	if IsSupportCampaignID("68ba588b8500561576b8f3fd") {
		t.Fatal("campaign ids are not support keys")
	}
}

func TestDefaultConversationName(t *testing.T) {
	t.Parallel()

	if got := DefaultConversationName("Summer Campaign 2025"); got != "Summer Campaign 2025 Discussion" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := DefaultConversationName("  "); got != "Campaign Discussion" {
		t.Fatalf("unexpected fallback name %q", got)
	}
}
