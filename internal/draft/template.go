package draft

import (
	"fmt"

	"github.com/yangwenmai/autoblog/internal/model"
)

// Template is the provider-free article used when every generator fails. It always has a title of
// at most MaxTitleRunes runes and a non-empty body with placeholder sections.
func Template(topic string) model.Article {
	body := fmt.Sprintf(`## Understanding %[1]s

%[1]s represents an important development in technology. Recent advances have shown significant potential for innovation and practical applications.

## Key features

The main aspects include improved performance, better user experience, and enhanced capabilities that set new standards in the field.

## What's next

As technology continues to evolve, we can expect further improvements and wider adoption. What aspects interest you most?`, topic)

	return Normalize(model.Article{
		Title:           topic,
		Subtitle:        defaultSubtitle,
		Body:            body,
		MetaDescription: fmt.Sprintf("Learn about %s - latest developments and insights", topic),
		Tags:            DefaultTags,
	})
}
