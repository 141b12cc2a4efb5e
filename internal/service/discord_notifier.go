package service

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/JulienRioux/slabbers/internal/model"
	"github.com/JulienRioux/slabbers/internal/pricing"

	"github.com/bwmarrin/discordgo"
)

var ErrInvalidWebhookURL = errors.New("invalid discord webhook url")

// DiscordNotifier posts new public listings to a Discord channel webhook.
type DiscordNotifier struct {
	session   *discordgo.Session
	webhookID string
	token     string
	siteURL   string
}

// NewDiscordNotifier parses a webhook URL of the form
// https://discord.com/api/webhooks/{id}/{token}. siteURL is used to link
// embeds back to the card page and may be empty.
func NewDiscordNotifier(webhookURL, siteURL string) (*DiscordNotifier, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Client.Timeout = 10 * time.Second
	return &DiscordNotifier{
		session:   session,
		webhookID: id,
		token:     token,
		siteURL:   strings.TrimRight(siteURL, "/"),
	}, nil
}

func parseWebhookURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", ErrInvalidWebhookURL
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", ErrInvalidWebhookURL
}

func (n *DiscordNotifier) CardListed(card *model.CardSummary) {
	params := &discordgo.WebhookParams{
		Username: "Slabbers Marketplace",
		Embeds:   []*discordgo.MessageEmbed{listingEmbed(card, n.siteURL)},
	}
	go func() {
		if _, err := n.session.WebhookExecute(n.webhookID, n.token, false, params); err != nil {
			log.Printf("[discord-webhook] send error: %v", err)
		}
	}()
}

// CardRemoved is a no-op: withdrawn listings are not announced.
func (n *DiscordNotifier) CardRemoved(*model.Card) {}

func listingEmbed(card *model.CardSummary, siteURL string) *discordgo.MessageEmbed {
	price := "Price on request"
	if card.PriceCents != nil {
		price = pricing.FormatMoney(*card.PriceCents, card.Currency)
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Player", Value: card.Player, Inline: true},
		{Name: "Price", Value: price, Inline: true},
		{Name: "Seller", Value: card.OwnerLabel(), Inline: true},
	}
	if card.Year != nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Year", Value: fmt.Sprintf("%d", *card.Year), Inline: true})
	}
	if card.IsGraded && card.GradingCompany != nil && card.Grade != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Grade", Value: *card.GradingCompany + " " + *card.Grade, Inline: true,
		})
	}

	embed := &discordgo.MessageEmbed{
		Title:     card.Title,
		Color:     0x2ECC71,
		Fields:    fields,
		Timestamp: card.CreatedAt.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "New listing"},
	}
	if siteURL != "" {
		embed.URL = siteURL + "/card/" + card.ID
	}
	if len(card.ImageURLs) > 0 {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: card.ImageURLs[0]}
	}
	return embed
}
