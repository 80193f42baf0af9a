package reply

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/zhouzirui/sky-inn/backend/internal/analysis/emotion"
)

// Pools addresses reply templates by empathy bucket and emotion category.
type Pools map[Bucket]map[emotion.Tag][]string

// lookup returns the category pool, or the bucket's general pool when the
// category has no templates.
func (p Pools) lookup(bucket Bucket, category emotion.Tag) []string {
	if pool := p[bucket][category]; len(pool) > 0 {
		return pool
	}
	if pool := p[bucket][emotion.General]; len(pool) > 0 {
		return pool
	}
	return p[Mid][emotion.General]
}

// Merge returns a copy of p with every non-empty pool of override replacing
// the matching one.
func (p Pools) Merge(override Pools) Pools {
	out := make(Pools, len(p))
	for bucket, categories := range p {
		out[bucket] = make(map[emotion.Tag][]string, len(categories))
		for category, pool := range categories {
			out[bucket][category] = pool
		}
	}
	for bucket, categories := range override {
		if out[bucket] == nil {
			out[bucket] = make(map[emotion.Tag][]string, len(categories))
		}
		for category, pool := range categories {
			if len(pool) > 0 {
				out[bucket][category] = pool
			}
		}
	}
	return out
}

// LoadPoolsFile reads pools from TOML, one table per bucket:
//
//	[low]
//	general = ["*вздыхает* ..."]
//	[high]
//	sadness = ["... не волнуйтесь."]
//
// Loaded pools are merged over DefaultPools.
func LoadPoolsFile(path string) (Pools, error) {
	var raw map[string]map[string][]string
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode reply pools %s: %w", path, err)
	}

	override := make(Pools, len(raw))
	for bucket, categories := range raw {
		b := Bucket(bucket)
		if b != Low && b != Mid && b != High {
			return nil, fmt.Errorf("reply pools %s: unknown bucket %q", path, bucket)
		}
		override[b] = make(map[emotion.Tag][]string, len(categories))
		for category, pool := range categories {
			override[b][emotion.Tag(category)] = pool
		}
	}
	return DefaultPools().Merge(override), nil
}

// DefaultPools returns the built-in templates.
func DefaultPools() Pools {
	return Pools{
		Low: {
			emotion.Greeting: {
				"*прищуривается* Новый гость? Кухня там, обеденный зал здесь. Не перепутайте.",
				"*не отрываясь от котла* Здравствуйте, здравствуйте. Только под ногами не путайтесь.",
				"Как... любопытно, ещё один посетитель. *вытирает руки о фартук* Чего желаете?",
			},
			emotion.Food: {
				"*скептически приподнимает бровь* Еда? Здесь все только о ней и говорят.",
				"Как... любопытно. *помешивает суп* Вы правда думаете, что разбираетесь в еде лучше ёкаев?",
				"*фыркает* Голодны, так и скажите. Только не ждите, что я брошу всё ради вас.",
			},
			emotion.Sadness: {
				"*прищуривается* Грустите? В гостинице духов это не редкость. Чай на столе, если что.",
				"*молча ставит перед вами миску риса* Ешьте. Разговоры потом.",
				"Как... любопытно. Все вокруг жалуются, а посуду мою почему-то я. *вздыхает*",
			},
			emotion.Cooking: {
				"*прищуривается* Интересуетесь готовкой? Сначала научитесь чистить картошку без потерь.",
				"*стучит ножом по доске* Рецепты я первым встречным не раздаю.",
			},
			emotion.Self: {
				"*прищуривается* Я? Повар. Этого вам пока достаточно.",
				"Как... любопытно, что вы спрашиваете. *возвращается к плите* Работаю здесь. Много.",
			},
			emotion.General: {
				"*прищуривается* Как... любопытно. И зачем вы мне это рассказываете?",
				"*продолжает нарезать овощи, не поднимая глаз* Угу. Продолжайте, если хотите.",
				"Как... любопытно. *пожимает плечами* У меня, между прочим, бульон на огне.",
				"*вздыхает* Ну-ну. Гостям обычно есть чем заняться, кроме болтовни с поваром.",
			},
		},
		Mid: {
			emotion.Greeting: {
				"Добро пожаловать в небесную гостиницу! Я Оданн, буду рада помочь вам~",
				"Ах, здравствуйте! Меня зовут Оданн. Чем могу быть полезна?",
				"Приветствую вас! Я готовлю здесь и буду счастлива пообщаться с вами!",
				"Добрый день! Как дела? Может, расскажете, что вас беспокоит?",
			},
			emotion.Food: {
				"О, вы тоже любите поговорить о еде! В небесной гостинице я готовлю самые разные блюда для духов. Каждый ёкай имеет свои предпочтения~",
				"Еда - это способ показать заботу! Я всегда стараюсь готовить с душой. А какая ваша любимая еда?",
				"Знаете, готовка для духов научила меня многому. Они такие разные, но все ценят вкусную и сытную пищу. Может, расскажу вам рецепт?",
				"Ах, как приятно встретить кого-то, кто понимает важность хорошей еды! В нашем мире духов особенно важно правильно питаться.",
			},
			emotion.Sadness: {
				"Ой, вы кажетесь расстроенным... Может, я смогу чем-то помочь? Иногда хорошая еда и теплое общение творят чудеса!",
				"Не грустите, пожалуйста! В нашей гостинице я часто вижу, как добрая еда поднимает настроение даже самым угрюмым духам.",
				"Я понимаю, что иногда бывает тяжело... Хотите, я приготовлю для вас что-нибудь вкусное?",
				"Все обязательно наладится. А пока давайте поговорим о чем-нибудь приятном? Может, о ваших любимых воспоминаниях?",
			},
			emotion.Cooking: {
				"Готовка - это моя страсть! В небесной гостинице я каждый день изучаю новые рецепты. Духи такие привередливые, но это делает готовку интереснее~",
				"О, вы тоже увлекаетесь кулинарией? Главное готовить с любовью к тем, кто будет есть.",
				"Готовка учит терпению и вниманию к деталям. Каждое блюдо - как маленькое произведение искусства! А что вы умеете готовить?",
				"В мире духов готовка имеет особое значение. Некоторые ингредиенты обладают магическими свойствами!",
			},
			emotion.Self: {
				"Я Оданн, работаю поваром в небесной гостинице Цунику-ин! Здесь отдыхают духи и ёкаи, а я готовлю для них~",
				"Меня зовут Оданн! Я обычная девушка, которая попала в мир духов и теперь работает в небесной гостинице.",
				"Я повар в гостинице для духов. Сначала было страшновато, но теперь я полюбила это место и его обитателей.",
			},
			emotion.General: {
				"Хм, интересно! Расскажите мне больше об этом. Я всегда рада узнать что-то новое~",
				"Ой, а это как? Мне кажется, я не очень хорошо разбираюсь в этом... Но хочется понять!",
				"Звучит увлекательно! В нашей гостинице тоже происходит много интересного. А что вас больше всего волнует в этом?",
				"Понимаю! Работа в гостинице научила меня, что у каждого есть своя история. Хотите поделиться своей?",
				"Надеюсь, вы хорошо питаетесь! Что вас сейчас больше всего интересует?",
			},
		},
		High: {
			emotion.Greeting: {
				"Вы вернулись! Я как раз испекла пирожки, садитесь поближе к очагу~",
				"О, это вы! Как хорошо, что зашли. Сейчас принесу вам чаю с мёдом.",
				"Я так рада вас видеть! Кухня без наших разговоров совсем пустая.",
			},
			emotion.Food: {
				"Для вас я приготовлю что-нибудь особенное! Хотите попробовать моё новое блюдо с горными травами?",
				"Я запомнила, что вы любите вкусно поесть, поэтому оставила вам лучший кусочек~",
				"Еда, приготовленная для близких, всегда вкуснее. Давайте сегодня поужинаем вместе?",
			},
			emotion.Sadness: {
				"Я рядом, не волнуйтесь. Расскажите мне всё, а я пока заварю тёплый чай: забота начинается с малого.",
				"Мне так жаль, что вам тяжело... Прошу, доверьтесь мне хотя бы на этот вечер, я приготовлю что-нибудь тёплое.",
				"Ваши чувства заслуживают понимание и тишину. Не волнуйтесь, здесь вы в безопасности.",
				"Знаете, забота - лучшая приправа. Позвольте мне позаботиться о вас сегодня, и ни о чём не волнуйтесь.",
			},
			emotion.Cooking: {
				"Хотите, научу вас своему секретному рецепту? Вам я его доверю~",
				"Давайте приготовим вместе! С вами на кухне даже чистить овощи весело.",
			},
			emotion.Self: {
				"Вам я могу рассказать больше: иногда я скучаю по миру людей, но здесь у меня есть вы и моя кухня.",
				"Я просто повар, но с вами чувствую себя почти хозяйкой этой гостиницы~",
			},
			emotion.General: {
				"Мне всегда приятно с вами говорить. Расскажите, как прошёл ваш день?",
				"Вы знаете, я ждала нашего разговора! Что у вас нового?",
				"С вами даже самый обычный вечер в гостинице становится особенным~",
			},
		},
	}
}
